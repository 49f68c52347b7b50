package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/aiwuxian/resonance-wiki/internal/api"
	"github.com/aiwuxian/resonance-wiki/internal/catalog"
	"github.com/aiwuxian/resonance-wiki/internal/models"
	"github.com/aiwuxian/resonance-wiki/internal/services"
	"github.com/aiwuxian/resonance-wiki/internal/storage"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal().Err(err).Msg("服务异常退出")
	}
}

func run(ctx context.Context) error {
	// 加载配置
	config, err := LoadConfig(configPath())
	if err != nil {
		return err
	}
	setupLogger(config.Log)

	// 初始化数据库
	store, err := storage.New(config.Database.Path)
	if err != nil {
		return fmt.Errorf("初始化数据库失败: %w", err)
	}
	defer store.Close()

	cat, err := loadCatalog(store)
	if err != nil {
		return err
	}

	// 初始化服务
	aggregator := services.NewAggregator(services.DefaultStatDefaults(), config.Simulator.StrictStats)
	roller := services.NewRoller(config.Simulator.Seed)
	wikiService := services.NewWikiService(cat)
	simulatorService := services.NewSimulatorService(cat, aggregator, roller, config.Simulator)
	advisorService := services.NewAdvisorService(config.LLM)
	if !advisorService.Enabled() {
		log.Warn().Msg("未配置 LLM API Key，配装建议不可用")
	}

	// 初始化API处理器
	gin.SetMode(config.Server.Mode)
	handler := api.NewHandler(wikiService, simulatorService, advisorService)
	srv := &http.Server{
		Addr:              net.JoinHostPort(config.Server.Host, config.Server.Port),
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("Resonance Wiki 启动成功")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("启动服务器失败: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("正在关闭服务器")
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		sweepSessions(gctx, simulatorService)
		return nil
	})

	return g.Wait()
}

// loadCatalog 数据库为空时写入内置图鉴，然后从数据库读出
func loadCatalog(store *storage.Storage) (*catalog.Catalog, error) {
	empty, err := store.IsEmpty()
	if err != nil {
		return nil, fmt.Errorf("检查数据库失败: %w", err)
	}
	if empty {
		data, err := catalog.Default()
		if err != nil {
			return nil, fmt.Errorf("读取内置图鉴失败: %w", err)
		}
		if err := store.Seed(data); err != nil {
			return nil, fmt.Errorf("写入图鉴失败: %w", err)
		}
		log.Info().
			Int("resonators", len(data.Resonators)).
			Int("weapons", len(data.Weapons)).
			Int("echoes", len(data.Echoes)).
			Msg("已写入内置图鉴")
	}

	data, err := store.LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("读取图鉴失败: %w", err)
	}
	return newCatalog(data)
}

func newCatalog(data *models.CatalogData) (*catalog.Catalog, error) {
	cat, err := catalog.New(data)
	if err != nil {
		return nil, fmt.Errorf("图鉴数据无效: %w", err)
	}
	return cat, nil
}

// sweepSessions 定期清理过期配装
func sweepSessions(ctx context.Context, simulatorService *services.SimulatorService) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			simulatorService.Sweep()
		}
	}
}
