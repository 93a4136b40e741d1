package app

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/VladChristmas/bot/internal/bot"
	"github.com/VladChristmas/bot/internal/config"
	"github.com/VladChristmas/bot/internal/database"
	"github.com/VladChristmas/bot/internal/handlers"
	"github.com/VladChristmas/bot/internal/repositories"
	"github.com/VladChristmas/bot/internal/routes"
	"github.com/VladChristmas/bot/internal/services"
)

func Run() {
	cfg := config.LoadConfig()

	// === DB ===
	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatal("database: ", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("[app] close db: %v", err)
		}
	}()

	// === Repos ===
	chatRepo := repositories.NewChatRepository(db)
	taskRepo := repositories.NewTaskRepository(db, cfg.Database.Driver)

	// === Services ===
	directoryService := services.NewDirectoryService(chatRepo)
	taskService := services.NewTaskService(taskRepo)
	replyMatcher := services.NewReplyMatcher(taskRepo)

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		log.Fatal("telegram: ", err)
	}
	gateway := services.NewTelegramService(api)
	broadcastService := services.NewBroadcastService(taskService, gateway)

	// === Bot ===
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tgBot := bot.New(api, cfg.Telegram.AdminID, directoryService, taskService, replyMatcher, broadcastService, gateway)
	go tgBot.Run(ctx)

	// === Report API ===
	chatHandler := handlers.NewChatHandler(directoryService)
	groupHandler := handlers.NewGroupHandler(directoryService)
	taskHandler := handlers.NewTaskHandler(taskService)

	r := routes.SetupRoutes(gin.Default(), cfg.Server.APIToken, chatHandler, groupHandler, taskHandler)

	log.Printf("[app] listening on :%d", cfg.Server.Port)
	if err := r.Run(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		log.Fatal("server: ", err)
	}
}
