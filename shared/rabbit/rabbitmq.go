package rabbit

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	conn    *amqp.Connection
	initErr error
	once    sync.Once
)

// Init dials RabbitMQ exactly once per process and hands out the shared
// connection. The publisher is optional wiring, so misconfiguration comes
// back as an error for the caller to log rather than killing the process.
func Init() (*amqp.Connection, error) {
	once.Do(func() {
		conn, initErr = initOnce()
	})
	return conn, initErr
}

func initOnce() (*amqp.Connection, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	username := os.Getenv("RABBITMQ_USER")
	password := os.Getenv("RABBITMQ_PASSWORD")
	port := os.Getenv("RABBITMQ_PORT")

	if username == "" || password == "" || port == "" {
		return nil, errors.New("rabbit: RABBITMQ_USER, RABBITMQ_PASSWORD and RABBITMQ_PORT must all be set")
	}

	rabbitURL := fmt.Sprintf("amqp://%s:%s@localhost:%s/", username, password, port)

	return amqp.Dial(rabbitURL)
}

func Cleanup() {
	if conn != nil {
		conn.Close()
	}
}
