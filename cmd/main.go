/*
Copyright 2024 RoutePay Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	payrouter "github.com/routepay/payrouter"
	"github.com/routepay/payrouter/config"
	"github.com/routepay/payrouter/database"
	"github.com/routepay/payrouter/internal/notification"
	redis_db "github.com/routepay/payrouter/internal/redis-db"
)

// PayRouterCLI encapsulates the root Cobra command.
type PayRouterCLI struct {
	cmd *cobra.Command
}

// routerInstance holds the engine instance and its configuration for the
// subcommands.
type routerInstance struct {
	router *payrouter.PayRouter
	cnf    *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and initializes the engine before any
// subcommand runs.
func preRun(app *routerInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(*configFile)
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newRouter, err := setupRouter(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.router = newRouter
		app.cnf = cnf

		return nil
	}
}

// setupRouter builds the engine: a Redis-backed document store and the HTTP
// settlement backend configured per route.
func setupRouter(cfg *config.Configuration) (*payrouter.PayRouter, error) {
	redisClient, err := redis_db.NewRedisClient([]string{cfg.Redis.Dns})
	if err != nil {
		return nil, fmt.Errorf("error connecting to redis: %v", err)
	}

	store := database.NewRedisStore(redisClient.Client())
	backend := payrouter.NewHTTPSettlementBackend(cfg.Routes)

	newRouter, err := payrouter.NewPayRouter(store, backend)
	if err != nil {
		return nil, fmt.Errorf("error creating payrouter: %v", err)
	}
	return newRouter, nil
}

// NewCLI creates the command-line interface for the payout routing engine.
func NewCLI() *PayRouterCLI {
	var configFile string
	b := &routerInstance{}

	var rootCmd = &cobra.Command{
		Use:   "payrouter",
		Short: "Payout routing engine",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./payrouter.json", "Configuration file for the payout engine")
	rootCmd.PersistentPreRunE = preRun(b, &configFile)

	rootCmd.AddCommand(serverCommands(b))
	rootCmd.AddCommand(workerCommands(b))

	return &PayRouterCLI{cmd: rootCmd}
}

func (w PayRouterCLI) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
