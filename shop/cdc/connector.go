package cdc

import (
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	postgresConnectorClass = "io.debezium.connector.postgresql.PostgresConnector"
	defaultPluginName      = "pgoutput"
	timePrecisionConnect   = "connect"
)

var ErrInvalidConnectorConfig = errors.New("connector config is incomplete")

// ConnectorConfig describes the Debezium Postgres connector.
type ConnectorConfig struct {
	Name        string
	Hostname    string
	Port        uint16
	User        string
	Password    string
	DBName      string
	TopicPrefix string
	Schema      string
	PluginName  string
}

// ConnectorConfigFromDSN takes host, port, credentials and database name from a Postgres DSN.
// The topic prefix defaults to the database host name.
func ConnectorConfigFromDSN(name, dsn, schema string) (ConnectorConfig, error) {
	parsed, err := pgconn.ParseConfig(dsn)
	if err != nil {
		return ConnectorConfig{}, errors.Join(ErrInvalidConnectorConfig, err)
	}

	return ConnectorConfig{
		Name:        name,
		Hostname:    parsed.Host,
		Port:        parsed.Port,
		User:        parsed.User,
		Password:    parsed.Password,
		DBName:      parsed.Database,
		TopicPrefix: parsed.Host,
		Schema:      schema,
		PluginName:  defaultPluginName,
	}, nil
}

// Validate reports missing required fields.
func (c ConnectorConfig) Validate() error {
	if c.Name == "" || c.Hostname == "" || c.Port == 0 || c.User == "" || c.DBName == "" || c.TopicPrefix == "" {
		return ErrInvalidConnectorConfig
	}

	return nil
}

// ConnectorRequest is the body of POST /connectors.
type ConnectorRequest struct {
	Name   string            `json:"name"`
	Config map[string]string `json:"config"`
}

// Payload renders the request body for Kafka Connect. All config values are strings.
func (c ConnectorConfig) Payload() ConnectorRequest {
	pluginName := c.PluginName
	if pluginName == "" {
		pluginName = defaultPluginName
	}

	config := map[string]string{
		"connector.class":      postgresConnectorClass,
		"database.hostname":    c.Hostname,
		"database.port":        strconv.Itoa(int(c.Port)),
		"database.user":        c.User,
		"database.password":    c.Password,
		"database.dbname":      c.DBName,
		"database.server.name": c.TopicPrefix,
		"topic.prefix":         c.TopicPrefix,
		"plugin.name":          pluginName,
		"time.precision.mode":  timePrecisionConnect,
	}

	if c.Schema != "" {
		config["schema.include.list"] = c.Schema
	}

	return ConnectorRequest{Name: c.Name, Config: config}
}
