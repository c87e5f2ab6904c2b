package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"healthqa/internal/chat"
	"healthqa/internal/config"
	"healthqa/internal/logging"
	"healthqa/internal/service"
	"healthqa/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/healthqa/config.yaml if not provided)")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	rt := service.NewRuntime(cfg, service.DefaultFactories(), log)
	defer rt.Close()

	p, err := rt.Pipeline(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, startupMessage(err))
		rt.Close()
		os.Exit(1)
	}

	session := chat.NewSession(p.Service)
	m := tui.New(session, tui.Info{Backend: p.Backend, Dimension: p.Dimension, Documents: p.Documents}, cfg.TurnTimeout())
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Error("ui stopped", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
	}
}

// startupMessage maps a pipeline construction failure to the text shown to
// the user.
func startupMessage(err error) string {
	switch {
	case service.IsMissingCredential(err):
		return "HATA: GOOGLE_API_KEY yüklenemedi. Lütfen .env dosyanızı kontrol edin."
	case service.IsContention(err):
		return "Veritabanı zaten başka bir süreç tarafından kullanılıyor.\n" +
			"Çözüm: Diğer tüm örnekleri kapatıp uygulamayı yeniden başlatın."
	case service.IsMissingStore(err):
		return "Veritabanı yüklenemedi. Lütfen indeksleme komutunu çalıştırdığınızdan emin olun."
	default:
		return fmt.Sprintf("Beklenmeyen hata: %v", err)
	}
}
