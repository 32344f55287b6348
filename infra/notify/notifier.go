// Package notify pushes freshly generated schedules to the shop floor
// over MQTT. Each production line gets its plan on its own topic so
// line terminals only subscribe to what concerns them.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"shopfloor-planner/core/model"
	"shopfloor-planner/infra/logger"
)

// Config defines the connection parameters for the plan publisher.
type Config struct {
	Enabled        bool   `json:"enabled"`
	Broker         string `json:"broker"`
	ClientID       string `json:"client_id"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	TopicPrefix    string `json:"topic_prefix"`
	ConnectTimeout int    `json:"connect_timeout_seconds"`
}

// SetDefaults fills in topic and timeout defaults.
func (c *Config) SetDefaults() {
	if c.TopicPrefix == "" {
		c.TopicPrefix = "shopfloor"
	}
	if c.ClientID == "" {
		c.ClientID = "shopfloor-planner"
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5
	}
}

// PlanNotifier publishes per-line schedules.
type PlanNotifier interface {
	PublishPlan(jobs []model.Job) error
	Close()
}

// NopNotifier discards plans. Used when MQTT is disabled.
type NopNotifier struct{}

func (NopNotifier) PublishPlan([]model.Job) error { return nil }

func (NopNotifier) Close() {}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// MQTTNotifier publishes plans through an Eclipse Paho client.
type MQTTNotifier struct {
	cli    pahoClient
	prefix string
	log    logger.Logger
}

// New connects to the broker when notifications are enabled; otherwise it
// returns a NopNotifier.
func New(cfg Config) (PlanNotifier, error) {
	cfg.SetDefaults()
	if !cfg.Enabled {
		return NopNotifier{}, nil
	}
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt broker is required when notifications are enabled")
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(time.Duration(cfg.ConnectTimeout) * time.Second).
		SetAutoReconnect(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	cli := newMQTTClient(opts)
	token := cli.Connect()
	if !token.WaitTimeout(time.Duration(cfg.ConnectTimeout) * time.Second) {
		return nil, fmt.Errorf("mqtt connect timeout after %ds", cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return &MQTTNotifier{cli: cli, prefix: cfg.TopicPrefix, log: logger.New("plan_notifier")}, nil
}

type planJob struct {
	JobID             uuid.UUID `json:"job_id"`
	OrderItemID       uuid.UUID `json:"order_item_id"`
	ProductID         uuid.UUID `json:"product_id"`
	ProductSKU        string    `json:"product_sku,omitempty"`
	PlannedStart      time.Time `json:"planned_start"`
	PlannedEnd        time.Time `json:"planned_end"`
	Quantity          int       `json:"quantity"`
	ChangeoverMinutes float64   `json:"changeover_minutes"`
}

type planPayload struct {
	ProductionLineID uuid.UUID `json:"production_line_id"`
	PublishedAt      time.Time `json:"published_at"`
	Jobs             []planJob `json:"jobs"`
}

// PublishPlan groups jobs by line and publishes each group to
// <prefix>/lines/<line-id>/plan. Payloads are retained so a line terminal
// reconnecting after downtime still sees its latest plan.
func (n *MQTTNotifier) PublishPlan(jobs []model.Job) error {
	byLine := make(map[uuid.UUID][]planJob)
	for _, j := range jobs {
		byLine[j.ProductionLineID] = append(byLine[j.ProductionLineID], planJob{
			JobID:             j.ID,
			OrderItemID:       j.OrderItemID,
			ProductID:         j.ProductID,
			ProductSKU:        j.ProductSKU,
			PlannedStart:      j.PlannedStart,
			PlannedEnd:        j.PlannedEnd,
			Quantity:          j.Quantity,
			ChangeoverMinutes: j.ChangeoverMinutes,
		})
	}

	now := time.Now().UTC()
	for lineID, lineJobs := range byLine {
		payload, err := json.Marshal(planPayload{
			ProductionLineID: lineID,
			PublishedAt:      now,
			Jobs:             lineJobs,
		})
		if err != nil {
			return fmt.Errorf("marshal plan payload: %w", err)
		}
		topic := fmt.Sprintf("%s/lines/%s/plan", n.prefix, lineID)
		token := n.cli.Publish(topic, 1, true, payload)
		token.Wait()
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish plan to %s: %w", topic, err)
		}
		n.log.Debugf("published %d job(s) to %s", len(lineJobs), topic)
	}
	return nil
}

// Close disconnects from the broker.
func (n *MQTTNotifier) Close() {
	n.cli.Disconnect(250)
}
