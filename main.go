package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/JasonRUAN/SecureFileShare/internal/appinit"
	"github.com/JasonRUAN/SecureFileShare/internal/background"
	"github.com/JasonRUAN/SecureFileShare/internal/blockchain/bcao/fabricbcao"
	"github.com/JasonRUAN/SecureFileShare/internal/blockchain/eventmgr/fabriceventmgr"
	"github.com/JasonRUAN/SecureFileShare/internal/controller"
	"github.com/JasonRUAN/SecureFileShare/internal/encryption"
	"github.com/JasonRUAN/SecureFileShare/internal/global"
	"github.com/JasonRUAN/SecureFileShare/internal/keyserver"
	"github.com/JasonRUAN/SecureFileShare/internal/service"
	"github.com/JasonRUAN/SecureFileShare/internal/session"
	"github.com/JasonRUAN/SecureFileShare/internal/wallet"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	var configPath, sdkConfigPath string

	// Functions to be used by the cli helper
	initFunc := getInitFunc(&configPath, &sdkConfigPath)
	serveFunc := getServeFunc(&configPath, &sdkConfigPath)
	keyServerFunc := getKeyServerFunc(&configPath, &sdkConfigPath)

	app := &cli.App{
		Name:  "securefileshare",
		Usage: "Encrypted file sharing over a threshold key service and a Fabric registry",
		Commands: []*cli.Command{
			{
				Name:    "init",
				Aliases: []string{"i"},
				Usage:   "Initialize the network",
				Flags:   configFlags(&configPath, &sdkConfigPath, "init.yaml"),
				Action:  initFunc,
			},
			{
				Name:    "serve",
				Aliases: []string{"s"},
				Usage:   "Start as the REST gateway",
				Flags:   configFlags(&configPath, &sdkConfigPath, "server.yaml"),
				Action:  serveFunc,
			},
			{
				Name:    "keyserver",
				Aliases: []string{"k"},
				Usage:   "Start as one of the key servers",
				Flags:   configFlags(&configPath, &sdkConfigPath, "server.yaml"),
				Action:  keyServerFunc,
			},
		},
	}

	// Run the cli helper
	if err := app.Run(os.Args); err != nil {
		log.Fatalln(err)
	}
}

func configFlags(configPath *string, sdkConfigPath *string, defaultConfigPath string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "conf",
			Aliases:     []string{"c"},
			Value:       defaultConfigPath,
			EnvVars:     []string{"FST_CONF"},
			Destination: configPath,
		},
		&cli.StringFlag{
			Name:        "sdkconf",
			Aliases:     []string{"s"},
			Value:       "config-network.yaml",
			EnvVars:     []string{"FST_SDK_CONF"},
			Destination: sdkConfigPath,
		},
	}
}

func getInitFunc(configPath *string, sdkConfigPath *string) func(c *cli.Context) error {
	// The func for subcommand "init"
	initFunc := func(c *cli.Context) error {
		// Create a Fabric SDK instance
		err := appinit.SetupSDK(*sdkConfigPath)
		if err != nil {
			return err
		}

		defer global.CloseSDK()

		// Load init info from `init.yaml`
		initInfo, err := appinit.LoadInitInfo(*configPath)
		if err != nil {
			return err
		}

		// Init the app
		if err := appinit.InitApp(&initInfo); err != nil {
			return err
		}

		log.Infof("网络初始化完成：%v 个组织，%v 个通道，%v 个链码。", len(initInfo.Users), len(initInfo.Channels), len(initInfo.Chaincodes))

		return nil
	}

	return initFunc
}

// prepareServer loads server.yaml and creates the Fabric clients of the operating user. The caller closes the SDK.
func prepareServer(configPath string, sdkConfigPath string) (*appinit.ServerInfo, error) {
	serverInfo, err := appinit.LoadServerInfo(configPath)
	if err != nil {
		return nil, err
	}

	if err := serverInfo.SetupLogger(); err != nil {
		return nil, err
	}
	global.ShowTimingLogs = serverInfo.ShowTimingLogs

	if err := appinit.SetupSDK(sdkConfigPath); err != nil {
		return nil, err
	}

	if err := appinit.InstantiateServerClients(&serverInfo); err != nil {
		global.CloseSDK()
		return nil, err
	}

	return &serverInfo, nil
}

func getServeFunc(configPath *string, sdkConfigPath *string) func(c *cli.Context) error {
	serveFunc := func(c *cli.Context) error {
		serverInfo, err := prepareServer(*configPath, *sdkConfigPath)
		if err != nil {
			return err
		}

		defer global.CloseSDK()

		chaincodeCtx, err := appinit.NewChaincodeCtx(serverInfo)
		if err != nil {
			return err
		}

		// The wallet is optional. Without it only public reads are served.
		var signer wallet.Signer
		if serverInfo.Wallet != nil && serverInfo.Wallet.PrivateKey != "" {
			sm2Signer, err := appinit.LoadWallet(serverInfo.Wallet)
			if err != nil {
				return err
			}
			signer = sm2Signer
			log.Infof("已连接钱包 %v。", sm2Signer.Address())
		} else {
			log.Warnln("未配置钱包，仅可浏览公开文件。")
		}

		blobStore, err := appinit.OpenBlobStore(c.Context, serverInfo.BlobStore)
		if err != nil {
			return err
		}

		if serverInfo.KeyServers == nil {
			return fmt.Errorf("未配置密钥服务器")
		}

		keyClient, err := keyserver.NewClient(serverInfo.KeyServers, keyserver.NewHTTPTransport(serverInfo.KeyServers.Timeout), nil)
		if err != nil {
			return err
		}

		engine, err := encryption.NewEngine(keyClient.Servers(), keyClient.Threshold())
		if err != nil {
			return err
		}

		db, err := appinit.OpenDB(serverInfo.DB)
		if err != nil {
			return err
		}

		// Instantiate services
		serviceInfo := &service.Info{
			ChaincodeID:       serverInfo.ChaincodeID,
			Registry:          fabricbcao.NewFileRegistryBCAOFabricImpl(chaincodeCtx, signer),
			BlobStore:         blobStore,
			BlobStoreType:     serverInfo.BlobStore.Type,
			Engine:            engine,
			KeyClient:         keyClient,
			Authenticator:     session.NewAuthenticator(nil),
			Signer:            signer,
			SessionTTL:        serverInfo.SessionTTL,
			MaxConcurrentPuts: serverInfo.MaxConcurrentPuts(),
			DB:                db,
		}

		uploadSvc := &service.UploadService{ServiceInfo: serviceInfo}
		retrievalSvc := &service.RetrievalService{ServiceInfo: serviceInfo}
		accessSvc := &service.AccessService{ServiceInfo: serviceInfo}
		registrySvc := &service.RegistryService{ServiceInfo: serviceInfo}

		// Instantiate controllers
		pingPongController := &controller.PingPongController{}

		fileController := &controller.FileController{
			GroupName:    "/files",
			UploadSvc:    uploadSvc,
			RetrievalSvc: retrievalSvc,
			AccessSvc:    accessSvc,
			RegistrySvc:  registrySvc,
		}

		registryController := &controller.RegistryController{
			GroupName:   "/",
			RegistrySvc: registrySvc,
		}

		router, err := controller.NewRouter(pingPongController, fileController, registryController)
		if err != nil {
			return err
		}

		// Watch file creation events to reconcile blob uploads whose submissions were reported as failed.
		// Orphans left from before are checked against the ledger on start
		eventClient := global.EventClientInstances[chaincodeCtx.ChannelID][chaincodeCtx.OrgName][chaincodeCtx.Username]
		eventManager := fabriceventmgr.NewFabricEventManager(fabriceventmgr.FromEventClient(eventClient), serverInfo.ChaincodeID)
		registryWatcher := background.NewRegistryWatcher(eventManager, db, serviceInfo.Registry)
		if err := registryWatcher.Start(); err != nil {
			return err
		}

		// Start the HTTP server
		httpServer := &http.Server{
			Addr:    fmt.Sprintf(":%v", serverInfo.Port),
			Handler: router,
		}

		chanError := make(chan error, 1)
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				chanError <- errors.Wrap(err, "无法启动 HTTP 服务器")
			}
		}()

		// Listen Ctrl+C signals. On receiving a signal stops the app elegantly
		chanQuit := make(chan os.Signal, 1)
		signal.Notify(chanQuit, os.Interrupt)
		select {
		case err := <-chanError:
			return err
		case <-chanQuit:
			log.Infoln("收到 Ctrl+C 信号，正在退出程序...")

			// Stop the HTTP server elegantly
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			log.Infoln("正在停止 HTTP 服务器...")
			if err := httpServer.Shutdown(ctx); err != nil {
				return errors.Wrap(err, "无法正常停止 HTTP 服务器")
			}

			log.Infoln("正在停止链上记录监听器...")
			wg, err := registryWatcher.Stop()
			if err != nil {
				return err
			}
			wg.Wait()
		}

		return nil
	}

	return serveFunc
}

func getKeyServerFunc(configPath *string, sdkConfigPath *string) func(c *cli.Context) error {
	keyServerFunc := func(c *cli.Context) error {
		serverInfo, err := prepareServer(*configPath, *sdkConfigPath)
		if err != nil {
			return err
		}

		defer global.CloseSDK()

		if serverInfo.KeyServer == nil || serverInfo.KeyServer.PrivateKey == "" {
			return fmt.Errorf("未配置密钥服务器的序号与私钥")
		}

		chaincodeCtx, err := appinit.NewChaincodeCtx(serverInfo)
		if err != nil {
			return err
		}

		privateKey, err := appinit.LoadKeyServerPrivateKey(serverInfo.KeyServer.PrivateKey)
		if err != nil {
			return err
		}

		// Key servers only simulate approvals, so the registry needs no wallet
		approver := fabricbcao.NewFileRegistryBCAOFabricImpl(chaincodeCtx, nil)

		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		ksServer := keyserver.NewServer(serverInfo.KeyServer.Index, privateKey, serverInfo.ChaincodeID, approver,
			keyserver.WithMetrics(keyserver.NewMetrics(registry)))

		ksInfo, err := ksServer.Info()
		if err != nil {
			return err
		}
		log.Infof("密钥服务器 #%v 的公钥为 %v。", ksInfo.Index, ksInfo.PublicKey)

		ksController := &controller.KeyServerController{
			GroupName: "/keyserver",
			Server:    ksServer,
		}

		router, err := controller.NewKeyServerRouter(ksController, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		if err != nil {
			return err
		}

		runner := background.NewKeyServerRunner(fmt.Sprintf(":%v", serverInfo.KeyServer.Port), router)
		if err := runner.Start(); err != nil {
			return err
		}

		chanQuit := make(chan os.Signal, 1)
		signal.Notify(chanQuit, os.Interrupt)
		select {
		case <-runner.Done():
			return fmt.Errorf("密钥服务器意外退出")
		case <-chanQuit:
			log.Infoln("收到 Ctrl+C 信号，正在退出程序...")

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return runner.Stop(ctx)
		}
	}

	return keyServerFunc
}
