package main

import (
	"fmt"
	"log"
	"os"

	"lumen/config"
	"lumen/handlers"
	middleware "lumen/middlewares"
	"lumen/raft"
	"lumen/rpc"
	"lumen/sources"
	"lumen/sources/postgres"
	"lumen/store"

	"github.com/alecthomas/kong"
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// Version is set via ldflags during build
var Version = "dev"

var CLI struct {
	Serve   ServeCmd   `cmd:"" help:"Start the Lumen server" default:"1"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

type ServeCmd struct {
	MasterKey string `help:"Master key for authentication (overrides LUMEN_MASTER_KEY env var)" env:"LUMEN_MASTER_KEY"`
	DataPath  string `help:"Path to data directory (overrides DATA_PATH env var)" env:"DATA_PATH" default:"./data"`
}

func (s *ServeCmd) Run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Override master key if provided via flag
	if s.MasterKey != "" {
		cfg.MasterKey = s.MasterKey
	}

	// Override data path if provided via flag
	if s.DataPath != "" {
		cfg.DataPath = s.DataPath
	}

	// Initialize logger
	var zapLogger *zap.Logger
	if cfg.LogLevel == "debug" {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting Lumen",
		zap.String("port", cfg.Port),
		zap.Bool("auth_enabled", cfg.RequiresAuth()),
		zap.String("data_path", cfg.DataPath),
		zap.String("geo_collection", cfg.GeoCollection),
		zap.Bool("raft_enabled", cfg.RaftEnabled),
	)

	// Initialize store with configured data path
	collectionStore := store.Initialize(cfg.DataPath)

	// Initialize Raft if enabled
	var raftNode *raft.RaftNode
	if cfg.RaftEnabled {
		nodeID := cfg.RaftNodeID
		peers := cfg.GetRaftPeers()

		// Kubernetes StatefulSet deployments derive identity and
		// peers from the cluster DNS
		if cfg.K8sEnabled {
			if nodeID == "" {
				nodeID, err = raft.GetNodeIDFromHostname()
				if err != nil {
					log.Fatal("Failed to derive node ID:", err)
				}
			}
			discovered, err := raft.DiscoverPeers(raft.DiscoveryConfig{
				K8sServiceName: cfg.K8sServiceName,
				K8sNamespace:   cfg.K8sNamespace,
				RaftPort:       cfg.RaftPort,
			})
			if err != nil {
				zapLogger.Warn("Peer discovery failed", zap.Error(err))
			} else {
				peers = discovered
			}
		}

		raftConfig := &raft.RaftConfig{
			NodeID:        nodeID,
			RaftDir:       cfg.RaftDir,
			RaftBind:      cfg.RaftBind,
			RaftAdvertise: cfg.RaftAdvertise,
			Bootstrap:     cfg.RaftBootstrap,
			Peers:         peers,
			APIPort:       cfg.Port,
			MasterKey:     cfg.MasterKey,
		}

		var err error
		raftNode, err = raft.NewRaftNode(raftConfig, collectionStore, zapLogger)
		if err != nil {
			log.Fatal("Failed to initialize Raft:", err)
		}
		defer raftNode.Shutdown()

		zapLogger.Info("Raft enabled",
			zap.String("node_id", raftConfig.NodeID),
			zap.String("bind", raftConfig.RaftBind),
			zap.Bool("bootstrap", raftConfig.Bootstrap),
		)
	}

	// Initialize source manager and restore persisted sources
	sourceManager := sources.NewManager(cfg.DataPath, collectionStore, raftNode, zapLogger)
	sourceManager.RegisterFactory("postgres", postgres.Factory)
	if err := sourceManager.Load(); err != nil {
		zapLogger.Error("Failed to load sources", zap.Error(err))
	}
	if err := sourceManager.StartAll(nil); err != nil {
		zapLogger.Error("Failed to start sources", zap.Error(err))
	}
	defer sourceManager.StopAll()

	return startServer(cfg, zapLogger, collectionStore, raftNode, sourceManager)
}

type VersionCmd struct{}

func (v *VersionCmd) Run() error {
	fmt.Printf("Lumen %s\n", Version)
	return nil
}

func startServer(cfg *config.Config, zapLogger *zap.Logger, collectionStore *store.CollectionStore, raftNode *raft.RaftNode, sourceManager *sources.Manager) error {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			zapLogger.Error("Request error",
				zap.Error(err),
				zap.Int("status", code),
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
			)
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
		JSONEncoder: sonic.Marshal,
		JSONDecoder: sonic.Unmarshal,
	})

	// Middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Writes landing on a follower are proxied to the leader
	var rpcClient rpc.RPCClient
	if raftNode != nil {
		rpcClient = rpc.NewHTTPRPCClient(zapLogger, cfg.Port)
	}

	// Inject handler context middleware
	app.Use(func(c *fiber.Ctx) error {
		handlers.SetContext(c, &handlers.HandlerContext{
			Store:         collectionStore,
			RaftNode:      raftNode,
			RPCClient:     rpcClient,
			Config:        cfg,
			Logger:        zapLogger,
			SourceManager: sourceManager,
		})
		return c.Next()
	})

	// Prometheus metrics (before auth to allow scraping without authentication)
	prometheus := fiberprometheus.New("lumen")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Authentication middleware
	app.Use(middleware.Authorization(cfg, zapLogger))

	// Health check route
	app.Get("/health", handlers.Health)

	// Cluster management routes (if Raft enabled)
	if cfg.RaftEnabled {
		app.Get("/cluster/status", handlers.ClusterStatus)
		app.Post("/cluster/join", handlers.JoinCluster)
	}

	// API routes; literal segments are registered before the
	// :collection parameter routes
	api := app.Group("/api/v1")
	{
		// Collection management
		api.Get("/collections", handlers.ListCollections)
		api.Post("/collections", handlers.CreateCollection)
		api.Delete("/collections/:name", handlers.DeleteCollection)
		api.Patch("/collections/:name", handlers.UpdateCollection)

		// Source management
		api.Get("/sources", handlers.ListSources)
		api.Post("/sources", handlers.CreateSource)
		api.Get("/sources/:sourceid", handlers.GetSource)
		api.Delete("/sources/:sourceid", handlers.DeleteSource)
		api.Post("/sources/:sourceid/pause", handlers.PauseSource)
		api.Post("/sources/:sourceid/resume", handlers.ResumeSource)
		api.Post("/sources/:sourceid/resync", handlers.ResyncSource)

		// Search
		api.Get("/:collection/search", handlers.Search)

		// Document management
		api.Post("/:collection/documents", handlers.AddDocuments)
		api.Delete("/:collection/documents", handlers.DeleteDocuments)
		api.Get("/:collection/documents/:documentid", handlers.GetDocument)
		api.Delete("/:collection/documents/:documentid", handlers.DeleteDocument)
		api.Patch("/:collection/documents/:documentid", handlers.UpdateDocument)
	}

	// Start server
	zapLogger.Info("Server starting", zap.String("address", ":"+cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		zapLogger.Fatal("Failed to start server", zap.Error(err))
		return err
	}
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("lumen"),
		kong.Description("A content collection search server"),
		kong.UsageOnError(),
	)
	err := ctx.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
