// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/vinhpn/boardroom/internal/auth"
	"github.com/vinhpn/boardroom/internal/cache"
	"github.com/vinhpn/boardroom/internal/chess"
	"github.com/vinhpn/boardroom/internal/gomoku"
	"github.com/vinhpn/boardroom/internal/handlers"
	"github.com/vinhpn/boardroom/internal/middleware"
	"github.com/vinhpn/boardroom/internal/store"
)

func main() {
	// Persistent signing keys keep guest identities across restarts; without
	// them every boot mints a fresh pair and guests start over.
	if priv, pub := os.Getenv("AUTH_PRIVATE_KEY_PATH"), os.Getenv("AUTH_PUBLIC_KEY_PATH"); priv != "" && pub != "" {
		if err := auth.InitFromPath(priv, pub); err != nil {
			log.Fatalf("load signing keys: %v", err)
		}
	} else {
		auth.Init()
	}

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	if err := cache.Connect(); err != nil {
		logger.Warnf("redis unavailable, match history disabled: %v", err)
	}

	var (
		gomokuRooms store.Store[gomoku.Room]
		chessRooms  store.Store[chess.Room]
	)
	if os.Getenv("ROOM_STORE") == "redis" {
		if cache.Rdb == nil {
			log.Fatal("ROOM_STORE=redis requires a reachable Redis")
		}
		gomokuRooms = store.NewRedisStore[gomoku.Room](cache.Rdb, "gomoku", logger)
		chessRooms = store.NewRedisStore[chess.Room](cache.Rdb, "chess", logger)
		logger.Info("room store: redis")
	} else {
		gomokuRooms = store.NewMemoryStore[gomoku.Room](logger)
		chessRooms = store.NewMemoryStore[chess.Room](logger)
		logger.Info("room store: memory")
	}

	gomokuSvc := gomoku.NewService(gomokuRooms, logger)
	chessSvc := chess.NewService(chessRooms, chess.NewEngine(), logger)
	if v := os.Getenv("RESET_COOLDOWN"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("bad RESET_COOLDOWN %q: %v", v, err)
		}
		chessSvc.ResetCooldown = d
	}

	srv := handlers.NewServer(gomokuSvc, chessSvc, logger)
	logMW := middleware.LogMiddleware(logger)

	mux := http.NewServeMux()

	// room endpoints
	mux.Handle("POST /gomoku/rooms", logMW(http.HandlerFunc(srv.CreateGomokuRoomHandler)))
	mux.Handle("GET /gomoku/rooms/{code}", logMW(http.HandlerFunc(srv.GetGomokuRoomHandler)))
	mux.Handle("POST /chess/rooms", logMW(http.HandlerFunc(srv.CreateChessRoomHandler)))
	mux.Handle("GET /chess/rooms/{code}", logMW(http.HandlerFunc(srv.GetChessRoomHandler)))

	// room websockets
	mux.Handle("GET /gomoku/ws/{code}", logMW(http.HandlerFunc(srv.GomokuWSHandler)))
	mux.Handle("GET /chess/ws/{code}", logMW(http.HandlerFunc(srv.ChessWSHandler)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
