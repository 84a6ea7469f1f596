package usecase

// User-visible copy. The bot speaks Spanish regardless of the failure; raw
// errors never reach the end user.
const (
	ReplyAgentSoon      = "Un agente se pondrá en contacto contigo pronto."
	ReplyChatRestarted  = "El chat ha sido reiniciado."
	ReplyAgentClosed    = "El agente ha cerrado el chat."
	ReplyAgentJoined    = "El agente ha abierto el chat, ahora estás hablando con un agente."
	ReplyAgentsBusy     = "Los agentes están actualmente no disponibles, nos pondremos en contacto contigo tan pronto como uno esté disponible."
	ReplyAgentPlatform  = "Hay un problema con la plataforma que están utilizando los agentes, actualmente no están disponibles."
	ReplyOpenFailed     = "Estamos enfrentando un problema de nuestra parte, no se pudo abrir la conexión con el agente, estamos investigándolo."
	ReplyThreadLost     = "Estamos enfrentando un problema de nuestra parte, la conexión con el agente se ha cerrado, estamos investigándolo."
	ReplyUpstreamError  = "Lo sentimos, algo salió mal de nuestra parte. Te derivaremos a un agente lo antes posible."
	ReplyAskDNIForMedia = "Antes de poder enviar una imagen o archivo al agente, por favor ingresa tu número de cédula. Con \"-\" en el formato X-XXX-XXXX."
)
