package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"nvivas/backend/tictactoe-rooms/internal/bus"
	"nvivas/backend/tictactoe-rooms/internal/client"
	"nvivas/backend/tictactoe-rooms/internal/config"
	"nvivas/backend/tictactoe-rooms/internal/hub"
	"nvivas/backend/tictactoe-rooms/internal/logger"
	"nvivas/backend/tictactoe-rooms/internal/registry"
	"nvivas/backend/tictactoe-rooms/internal/room"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "optional config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Configuración inválida", logger.Fields{"error": err.Error()})
	}
	if err := logger.Initialize(cfg.LogLevel, cfg.LogFormat); err != nil {
		logger.Fatal("Error al inicializar el logger", logger.Fields{"error": err.Error()})
	}

	// Crear contexto cancelable
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var opts []hub.Option
	var events *bus.Bus
	if cfg.BusEnabled() {
		rdb, err := bus.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("No se pudo conectar a Redis", logger.Fields{"error": err.Error()})
		}
		defer rdb.Close()
		events = bus.New(rdb, cfg.RedisChannel)
		opts = append(opts, hub.WithPublisher(events))
	}

	mainHub := hub.New(room.NewDirectory(), registry.New(), opts...)
	if events != nil {
		go func() {
			if err := events.Run(ctx, mainHub.Relay); err != nil && ctx.Err() == nil {
				logger.Error("Bus de eventos detenido", logger.Fields{"error": err.Error()})
			}
		}()
	}
	logger.Info("Hub iniciado", logger.Fields{"bus": cfg.BusEnabled()})

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.CORSOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowCredentials: true,
	})
	upgrader := &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     c.OriginAllowed,
	}

	// Configurar rutas
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", client.ServeWS(mainHub, upgrader, cfg.SendBuffer))

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      c.Handler(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Canal para señales del sistema
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Iniciando servidor", logger.Fields{"addr": cfg.Addr(), "origin": cfg.CORSOrigin})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Error al iniciar el servidor", logger.Fields{"error": err.Error()})
		}
	}()

	<-done
	stats := mainHub.Stats()
	logger.Info("Recibida señal de apagado, iniciando shutdown", logger.Fields{
		"connections": stats.Connections,
		"rooms":       stats.Rooms,
	})

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	mainHub.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error durante el shutdown del servidor", logger.Fields{"error": err.Error()})
	}

	logger.Info("Servidor detenido correctamente", nil)
}
