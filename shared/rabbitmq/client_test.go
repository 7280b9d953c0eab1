package rabbitmq

import (
	"log/slog"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

func TestMonitorCloseMarksClientDisconnected(t *testing.T) {
	c := &Client{
		config:      &Config{},
		logger:      slog.Default(),
		closeChan:   make(chan *amqp.Error, 1),
		isConnected: true,
	}

	c.closeChan <- &amqp.Error{Code: amqp.ConnectionForced, Reason: "broker shutdown"}
	c.monitorClose()

	assert.False(t, c.isConnected)
}

func TestMonitorCloseIgnoresGracefulClose(t *testing.T) {
	c := &Client{
		config:      &Config{},
		logger:      slog.Default(),
		closeChan:   make(chan *amqp.Error, 1),
		isConnected: true,
	}

	// A local Close closes the notification channel with no error.
	close(c.closeChan)
	c.monitorClose()

	assert.True(t, c.isConnected, "graceful close path sets the flag itself")
}
