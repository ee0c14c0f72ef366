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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"

	"github.com/routepay/payrouter/model"
)

const (
	DEFAULT_PORT = "5002"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"PAYROUTER_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"PAYROUTER_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"PAYROUTER_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"PAYROUTER_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"PAYROUTER_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"PAYROUTER_SERVER_PORT"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"PAYROUTER_REDIS_DNS"`
}

// RoutingConfig holds the selector thresholds and the per-request ceiling.
// Amount fields are micro-units.
type RoutingConfig struct {
	MaxSinglePayout        int64 `json:"max_single_payout" envconfig:"PAYROUTER_MAX_SINGLE_PAYOUT"`
	LargeTransferThreshold int64 `json:"large_transfer_threshold" envconfig:"PAYROUTER_LARGE_TRANSFER_THRESHOLD"`
	MidTransferThreshold   int64 `json:"mid_transfer_threshold" envconfig:"PAYROUTER_MID_TRANSFER_THRESHOLD"`
	SelectionRetries       int   `json:"selection_retries" envconfig:"PAYROUTER_SELECTION_RETRIES"`
	DispatchRetries        int   `json:"dispatch_retries" envconfig:"PAYROUTER_DISPATCH_RETRIES"`
}

// HealthConfig drives the rolling-window health derivation and the
// circuit breaker.
type HealthConfig struct {
	WindowSize          int     `json:"window_size" envconfig:"PAYROUTER_HEALTH_WINDOW_SIZE"`
	OperationalRate     float64 `json:"operational_rate" envconfig:"PAYROUTER_HEALTH_OPERATIONAL_RATE"`
	DegradedRate        float64 `json:"degraded_rate" envconfig:"PAYROUTER_HEALTH_DEGRADED_RATE"`
	CircuitThreshold    int     `json:"circuit_threshold" envconfig:"PAYROUTER_HEALTH_CIRCUIT_THRESHOLD"`
	CooldownSeconds     int     `json:"cooldown_seconds" envconfig:"PAYROUTER_HEALTH_COOLDOWN_SECONDS"`
	RecoverySuccesses   int     `json:"recovery_successes" envconfig:"PAYROUTER_HEALTH_RECOVERY_SUCCESSES"`
	DegradedLatencyMins int     `json:"degraded_latency_minutes" envconfig:"PAYROUTER_HEALTH_DEGRADED_LATENCY_MINUTES"`
}

type BatchConfig struct {
	MaxSize int `json:"max_size" envconfig:"PAYROUTER_BATCH_MAX_SIZE"`
	Workers int `json:"workers" envconfig:"PAYROUTER_BATCH_WORKERS"`
}

type FeesConfig struct {
	DiscountTiers []model.DiscountTier `json:"discount_tiers"`
}

type QueueConfig struct {
	WebhookQueue   string `json:"webhook_queue" envconfig:"PAYROUTER_WEBHOOK_QUEUE"`
	MonitoringPort string `json:"monitoring_port" envconfig:"PAYROUTER_MONITORING_PORT"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"PAYROUTER_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"PAYROUTER_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"PAYROUTER_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack   SlackWebhook `json:"slack"`
	Webhook struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

type Configuration struct {
	ProjectName     string              `json:"project_name" envconfig:"PAYROUTER_PROJECT_NAME"`
	EnableTelemetry bool                `json:"enable_telemetry" envconfig:"PAYROUTER_ENABLE_TELEMETRY"`
	Server          ServerConfig        `json:"server"`
	Redis           RedisConfig         `json:"redis"`
	Routes          []model.RouteConfig `json:"routes"`
	Routing         RoutingConfig       `json:"routing"`
	Health          HealthConfig        `json:"health"`
	Batch           BatchConfig         `json:"batch"`
	Fees            FeesConfig          `json:"fees"`
	Queue           QueueConfig         `json:"queue"`
	RateLimit       RateLimitConfig     `json:"rate_limit"`
	Notification    Notification        `json:"notification"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer func() {
			if err := f.Close(); err != nil {
				logrus.Error(err)
			}
		}()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("payrouter", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called payrouter.json with your config")
	}
	return c, nil
}

// DefaultRoutes returns the built-in settlement channels used when none are
// configured. Fee rates are basis points by priority.
func DefaultRoutes() []model.RouteConfig {
	schedule := func(base int64) model.FeeSchedule {
		return model.FeeSchedule{
			BasisPoints: map[string]int64{
				model.PriorityLow:      base - 5,
				model.PriorityNormal:   base,
				model.PriorityHigh:     base + 5,
				model.PriorityCritical: base + 10,
			},
		}
	}

	kycSchedule := schedule(15)
	kycSchedule.KYCSurchargeBps = 5

	return []model.RouteConfig{
		{
			RouteID:              model.RouteV0,
			Capacity:             1000,
			MinAmount:            model.ToMinorUnits(1),
			MaxAmount:            model.ToMinorUnits(1_000_000),
			Fees:                 schedule(10),
			ConfirmationTarget:   5,
			EstimatedTimeMinutes: 5,
		},
		{
			RouteID:              model.RouteKYC,
			Capacity:             500,
			MinAmount:            model.ToMinorUnits(1),
			MaxAmount:            model.ToMinorUnits(500_000),
			Fees:                 kycSchedule,
			RequireKYC:           true,
			ConfirmationTarget:   5,
			EstimatedTimeMinutes: 7,
		},
		{
			RouteID:              model.RouteDirect,
			Capacity:             200,
			MinAmount:            model.ToMinorUnits(1),
			MaxAmount:            model.ToMinorUnits(100_000),
			Fees:                 schedule(20),
			ConfirmationTarget:   5,
			EstimatedTimeMinutes: 3,
		},
		{
			RouteID:              model.RouteSmart,
			Capacity:             2000,
			MinAmount:            model.ToMinorUnits(1),
			MaxAmount:            model.ToMinorUnits(50_000),
			Fees:                 schedule(5),
			ConfirmationTarget:   5,
			EstimatedTimeMinutes: 4,
		},
	}
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "PayRouter Server"
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if len(cnf.Routes) == 0 {
		log.Println("Warning: No routes configured. Using built-in route set.")
		cnf.Routes = DefaultRoutes()
	}
	for i := range cnf.Routes {
		if cnf.Routes[i].RouteID == "" {
			return errors.New("every route needs a route_id")
		}
		if cnf.Routes[i].Capacity <= 0 {
			return errors.New("every route needs a positive capacity")
		}
		if cnf.Routes[i].ConfirmationTarget == 0 {
			cnf.Routes[i].ConfirmationTarget = 5
		}
		if cnf.Routes[i].EstimatedTimeMinutes == 0 {
			cnf.Routes[i].EstimatedTimeMinutes = 5
		}
	}

	if cnf.Routing.MaxSinglePayout == 0 {
		cnf.Routing.MaxSinglePayout = model.ToMinorUnits(1_000_000)
	}
	if cnf.Routing.LargeTransferThreshold == 0 {
		cnf.Routing.LargeTransferThreshold = model.ToMinorUnits(50_000)
	}
	if cnf.Routing.MidTransferThreshold == 0 {
		cnf.Routing.MidTransferThreshold = model.ToMinorUnits(10_000)
	}
	if cnf.Routing.SelectionRetries == 0 {
		cnf.Routing.SelectionRetries = 3
	}
	if cnf.Routing.DispatchRetries == 0 {
		cnf.Routing.DispatchRetries = 3
	}

	if cnf.Health.WindowSize == 0 {
		cnf.Health.WindowSize = 50
	}
	if cnf.Health.OperationalRate == 0 {
		cnf.Health.OperationalRate = 0.95
	}
	if cnf.Health.DegradedRate == 0 {
		cnf.Health.DegradedRate = 0.80
	}
	if cnf.Health.CircuitThreshold == 0 {
		cnf.Health.CircuitThreshold = 5
	}
	if cnf.Health.CooldownSeconds == 0 {
		cnf.Health.CooldownSeconds = 60
	}
	if cnf.Health.RecoverySuccesses == 0 {
		cnf.Health.RecoverySuccesses = 3
	}
	if cnf.Health.DegradedLatencyMins == 0 {
		cnf.Health.DegradedLatencyMins = 15
	}

	if cnf.Batch.MaxSize == 0 {
		cnf.Batch.MaxSize = 1000
	}
	if cnf.Batch.Workers == 0 {
		cnf.Batch.Workers = 16
	}

	if len(cnf.Fees.DiscountTiers) == 0 {
		cnf.Fees.DiscountTiers = []model.DiscountTier{
			{Threshold: model.ToMinorUnits(10_000), Percent: 5},
			{Threshold: model.ToMinorUnits(50_000), Percent: 10},
			{Threshold: model.ToMinorUnits(250_000), Percent: 15},
		}
	}

	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = "new:webhook"
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = "5003"
	}

	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 600
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	_ = mockConfig.validateAndAddDefaults()
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
