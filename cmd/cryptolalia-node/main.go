package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config"
	"github.com/nspcc-dev/cryptolalia-tree/misc"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/util/grace"
	"go.uber.org/zap"
)

const appName = "cryptolalia-node"

func fatalOnErrDetails(details string, err error) {
	if err != nil {
		log.Fatal(fmt.Errorf("%s: %w", details, err))
	}
}

func main() {
	configFile := flag.String("config", "", "path to config")
	versionFlag := flag.Bool("version", false, "cryptolalia node version")
	flag.Parse()

	if *versionFlag {
		fmt.Println(misc.BuildInfo(appName))
		os.Exit(0)
	}

	appCfg, err := config.New(config.Prm{}, config.WithConfigFile(*configFile))
	fatalOnErrDetails("read config", err)

	c := initCfg(appCfg)

	c.ctx = grace.NewGracefulContext(c.log)

	initApp(c)

	bootUp(c)

	c.log.Info("application started", zap.String("version", misc.Version))

	<-c.ctx.Done()

	shutdown(c)
}

func initApp(c *cfg) {
	initMetrics(c)
	initStorage(c)
	initNotificator(c)
	initReplica(c)
	initSync(c)
	initGRPC(c)
}

func bootUp(c *cfg) {
	serveMetrics(c)
	serveGRPC(c)
	startSync(c)
	dialPeers(c)

	c.healthStatus(healthReady)
}

func shutdown(c *cfg) {
	c.log.Info("shutting down")
	c.healthStatus(healthShuttingDown)

	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}

	c.wg.Wait()

	c.log.Info("application stopped")
	_ = c.log.Sync()
}
