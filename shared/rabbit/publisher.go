package rabbit

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"loottracker/shared/activity"
)

// ConfirmedKillsQueue carries confirmed kill records to downstream
// consumers (archival, feeds). Publishing is best-effort: a publish failure
// never rolls back a confirmation.
const ConfirmedKillsQueue = "confirmed_kills"

// ConfirmedKillMessage is the wire form of one confirmed kill, annotated
// with the activity it was confirmed under.
type ConfirmedKillMessage struct {
	ActivityID   string               `json:"activityId"`
	ActivityName string               `json:"activityName"`
	City         string               `json:"city"`
	ConfirmedAt  time.Time            `json:"confirmedAt"`
	Kill         *activity.KillRecord `json:"kill"`
}

type KillPublisher struct {
	ch *amqp.Channel
}

func NewKillPublisher(conn *amqp.Connection) (*KillPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	_, err = ch.QueueDeclare(
		ConfirmedKillsQueue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, err
	}

	return &KillPublisher{ch: ch}, nil
}

func (p *KillPublisher) PublishConfirmedKill(ctx context.Context, act *activity.Activity, kill *activity.KillRecord) error {
	body, err := json.Marshal(ConfirmedKillMessage{
		ActivityID:   act.ID,
		ActivityName: act.Name,
		City:         act.City,
		ConfirmedAt:  time.Now(),
		Kill:         kill,
	})
	if err != nil {
		return err
	}

	return p.ch.PublishWithContext(
		ctx,
		"",                  // exchange
		ConfirmedKillsQueue, // routing key
		false,               // mandatory
		false,               // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func (p *KillPublisher) Close() error {
	return p.ch.Close()
}
