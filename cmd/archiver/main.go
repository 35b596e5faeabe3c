package main

import (
	"encoding/json"
	"log"

	"github.com/joho/godotenv"

	"loottracker/shared/clickhouse"
	"loottracker/shared/monitoring"
	"loottracker/shared/rabbit"
)

// The archiver drains the confirmed-kills queue into ClickHouse. It is a
// separate binary so the tracker never blocks on the analytics store.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	conn, err := rabbit.Init()
	if err != nil {
		log.Fatalf("Failed to establish rabbitmq connection: %s", err)
	}
	defer rabbit.Cleanup()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("Failed to create channel: %s", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		rabbit.ConfirmedKillsQueue,
		true,  // durable, matches the publisher's declaration
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		log.Fatalf("Failed to declare queue: %s", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"",    // consumer
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		log.Fatalf("Failed to register a consumer: %s", err)
	}

	chConn, err := clickhouse.Connect(false)
	if err != nil {
		log.Fatalf("Error connecting to clickhouse: %s", err)
	}
	defer chConn.Close()

	monitoring.RegisterPrometheus(8084)

	log.Printf("Waiting for messages on queue %s...", q.Name)
	for msg := range msgs {
		var kill rabbit.ConfirmedKillMessage
		if err := json.Unmarshal(msg.Body, &kill); err != nil {
			log.Printf("Error unmarshalling message, dropping: %s", err)
			msg.Ack(false)
			continue
		}

		// The insert uses async_insert with server-side batching, so writing
		// one row per message is cheap.
		if err := clickhouse.InsertConfirmedKills(chConn, []rabbit.ConfirmedKillMessage{kill}); err != nil {
			log.Printf("Error inserting kill %d, requeueing: %s", kill.Kill.EventID, err)
			msg.Nack(false, true)
			continue
		}
		msg.Ack(false)
	}
}
