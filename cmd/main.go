package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "studydrive-downloader",
		Short: "Скачивание и кэширование документов по ссылке",
		Long: `studydrive-downloader принимает ссылку на документ, в фоне скачивает его
метаданные, файл и превью, кэширует их и отдаёт по короткоживущим ссылкам.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "путь к YAML конфигурации")
	rootCmd.AddCommand(serveCmd, migrateCmd, serviceTokenCmd)
}

// @title studydrive-downloader
// @version 1.0
// @description REST API скачивания и кэширования документов

// @host localhost:8080

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runServer : ждёт SIGINT/SIGTERM, затем останавливает сервер и дожидается фоновых скачиваний
func runServer(ctx context.Context, server *http.Server, drain func()) {
	serverErrors := make(chan error, 1)
	go func() {
		log.Println("сервер запущен на " + server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("ошибка работы сервера: %v", err)
		}
	case sig := <-signalChannel:
		log.Printf("получен сигнал %v остановки работы сервера ", sig)
	}

	shutDownCtx, shutDownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutDownCancel()

	if err := server.Shutdown(shutDownCtx); err != nil {
		log.Printf("ошибка при остановке сервера: %v", err)
	} else {
		log.Println("Сервер успешно остановлен")
	}

	drained := make(chan struct{})
	go func() {
		drain()
		close(drained)
	}()

	select {
	case <-drained:
		log.Println("фоновые скачивания завершены")
	case <-time.After(30 * time.Second):
		log.Println("не дождались фоновых скачиваний, они продолжатся после перезапуска")
	}
}
