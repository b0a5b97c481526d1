package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"library/internal/config"
	"library/internal/handlers"
	"library/internal/models"
	"library/internal/repositories"
	"library/internal/services"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get generic DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.GetConnMaxLifetime())

	if cfg.Database.AutoMigrate {
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
			log.Fatalf("failed to enable uuid-ossp extension: %v", err)
		}
		if err := db.AutoMigrate(&models.Book{}, &models.Member{}, &models.Borrowing{}); err != nil {
			log.Fatalf("failed to migrate schema: %v", err)
		}
		log.Printf("[INFO] schema migration complete")
	}

	bookRepo := repositories.NewBookRepository(db)
	memberRepo := repositories.NewMemberRepository(db)
	borrowingRepo := repositories.NewBorrowingRepository(db)

	bookService := services.NewBookService(bookRepo)
	memberService := services.NewMemberService(memberRepo, borrowingRepo)
	borrowingService := services.NewBorrowingService(db, bookRepo, memberRepo, borrowingRepo)

	router := gin.Default()

	handlers.RegisterRoutes(router, bookService, memberService, borrowingService)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.GetReadTimeout(),
		WriteTimeout: cfg.Server.GetWriteTimeout(),
	}

	log.Printf("Starting server on %s", cfg.Server.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
