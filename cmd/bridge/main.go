package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ponxai/credits-bridge/internal/biz/repo"
	"github.com/ponxai/credits-bridge/internal/biz/usecase"
	"github.com/ponxai/credits-bridge/internal/conf"
	"github.com/ponxai/credits-bridge/internal/data"
	mongostore "github.com/ponxai/credits-bridge/internal/data/mongo"
	sqlitestore "github.com/ponxai/credits-bridge/internal/data/sqlite"
	"github.com/ponxai/credits-bridge/internal/infra/b2chat"
	"github.com/ponxai/credits-bridge/internal/infra/crm"
	"github.com/ponxai/credits-bridge/internal/infra/llm"
	"github.com/ponxai/credits-bridge/internal/infra/storage"
	"github.com/ponxai/credits-bridge/internal/infra/twilio"
	"github.com/ponxai/credits-bridge/internal/server"
	"github.com/ponxai/credits-bridge/internal/service"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Open the document store
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	store, closeStore, err := openStore(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer closeStore()
	fmt.Printf("[Bridge] Store ready (driver=%s)\n", cfg.Store.Driver)

	// Initialize clients
	twilioClient := twilio.NewClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken)
	b2chatClient := b2chat.NewClient(cfg.B2Chat.Username, cfg.B2Chat.Password)
	storageClient := storage.NewClient(cfg.Storage.URL, cfg.Storage.ServiceKey)
	crmClient := crm.NewClient(cfg.CRM.APIKey)
	llmClient := llm.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)

	// Data adapters
	messenger := data.NewMessenger(twilioClient)
	agentChat := data.NewAgentChat(b2chatClient, storageClient)
	accounts := data.NewAccounts(crmClient)
	engine := data.NewEngine(llmClient, cfg.Prompts)

	// Business layer
	handover := usecase.NewHandover(store.Handoffs, agentChat, messenger, cfg.Handover.ToHandoverConfig())
	processor := usecase.NewTurnProcessor(store, engine, accounts, messenger, handover)
	coordinator := service.NewCoordinator(processor, cfg.Debounce.ToCoordinatorConfig())
	mediaFlow := usecase.NewMediaFlow(store, messenger, handover, coordinator)

	// HTTP surface
	clientWebhook := server.NewClientWebhook(twilioClient, cfg.Server.PublicURL, coordinator, mediaFlow)
	agentWebhook := server.NewAgentWebhook(store, messenger)
	admin := server.NewAdmin(store)
	srv := server.NewServer(cfg.Server.Port, clientWebhook, agentWebhook, admin)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("[Bridge] Shutdown error: %v\n", err)
		}
	}()

	fmt.Println("Starting Credits Bridge...")
	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// openStore opens the configured store backend and returns a close func.
func openStore(ctx context.Context, cfg *conf.Config) (*repo.Store, func(), error) {
	switch cfg.Store.Driver {
	case "sqlite":
		bundle, s, err := sqlitestore.NewStore(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return bundle, func() { _ = s.Close() }, nil
	default:
		bundle, s, err := mongostore.NewStore(ctx, cfg.Store.MongoURI, cfg.Store.MongoDB)
		if err != nil {
			return nil, nil, err
		}
		return bundle, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.Close(closeCtx)
		}, nil
	}
}
