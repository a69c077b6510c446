package broker

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/table-reservation/internal/model"
)

// Transport delivers one message body to a queue.
type Transport func(ctx context.Context, queue string, body []byte) error

// DialTransport publishes over a fresh connection per message.  Booking
// traffic is low enough that a pooled channel is not worth its reconnect
// handling.  Queues are declared durable and messages persistent.
func DialTransport(url string) Transport {
    return func(ctx context.Context, queue string, body []byte) error {
        conn, err := amqp.Dial(url)
        if err != nil {
            return fmt.Errorf("dial: %w", err)
        }
        defer func() { _ = conn.Close() }()

        ch, err := conn.Channel()
        if err != nil {
            return fmt.Errorf("channel open: %w", err)
        }
        defer func() { _ = ch.Close() }()

        if _, err := ch.QueueDeclare(
            queue, // name
            true,  // durable
            false, // autoDelete
            false, // exclusive
            false, // noWait
            nil,   // args
        ); err != nil {
            return fmt.Errorf("queue declare: %w", err)
        }

        pub := amqp.Publishing{
            ContentType:  "application/json",
            DeliveryMode: amqp.Persistent,
            Timestamp:    time.Now().UTC(),
            Body:         body,
        }
        if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
            return fmt.Errorf("publish: %w", err)
        }
        return nil
    }
}

// Publisher turns booking events into broker messages.  Every error is
// logged and returned; the services treat delivery as best-effort.
type Publisher struct {
    send Transport
    log  logrus.FieldLogger
    now  func() time.Time
}

// NewPublisher returns a Publisher that sends through t.
func NewPublisher(t Transport, log logrus.FieldLogger) *Publisher {
    return &Publisher{send: t, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (p *Publisher) publish(ctx context.Context, queue string, event interface{}) error {
    body, err := json.Marshal(event)
    if err != nil {
        p.log.WithError(err).WithField("queue", queue).Error("rabbitmq: marshal event failed")
        return err
    }
    if err := p.send(ctx, queue, body); err != nil {
        p.log.WithError(err).WithField("queue", queue).Warn("rabbitmq: publish failed")
        return err
    }
    return nil
}

func (p *Publisher) reservationEvent(r model.Reservation) ReservationEvent {
    return ReservationEvent{
        ReservationID: r.ID,
        Code:          r.Code,
        OutletID:      r.OutletID,
        CustomerName:  r.CustomerName,
        CustomerPhone: r.CustomerPhone,
        CustomerEmail: r.CustomerEmail,
        PartySize:     r.PartySize,
        StartsAt:      r.StartTime.UTC().Format(time.RFC3339),
        OccurredAt:    p.now().Format(time.RFC3339),
    }
}

// ReservationConfirmed publishes to reservation.confirmed.
func (p *Publisher) ReservationConfirmed(ctx context.Context, outlet model.Outlet, r model.Reservation, tableNumbers []string) error {
    ev := p.reservationEvent(r)
    ev.OutletName = outlet.Name
    ev.Tables = tableNumbers
    return p.publish(ctx, QueueReservationConfirmed, ev)
}

// ReservationCanceled publishes to reservation.canceled.
func (p *Publisher) ReservationCanceled(ctx context.Context, outlet model.Outlet, r model.Reservation, reason string) error {
    ev := p.reservationEvent(r)
    ev.OutletName = outlet.Name
    ev.Reason = reason
    return p.publish(ctx, QueueReservationCanceled, ev)
}

// ReservationReminder publishes to reservation.reminder.
func (p *Publisher) ReservationReminder(ctx context.Context, r model.Reservation, kind model.ReminderKind) error {
    ev := p.reservationEvent(r)
    ev.ReminderKind = string(kind)
    return p.publish(ctx, QueueReservationReminder, ev)
}

// QueueEntryCalled publishes to queue.called.
func (p *Publisher) QueueEntryCalled(ctx context.Context, e model.QueueEntry, tableNumber string) error {
    ev := WalkInCalledEvent{
        EntryID:       e.ID,
        Code:          e.Code,
        OutletID:      e.OutletID,
        CustomerName:  e.CustomerName,
        CustomerPhone: e.CustomerPhone,
        PartySize:     e.PartySize,
        Table:         tableNumber,
        OccurredAt:    p.now().Format(time.RFC3339),
    }
    if e.ReadyExpiresAt != nil {
        ev.ConfirmBy = e.ReadyExpiresAt.UTC().Format(time.RFC3339)
    }
    return p.publish(ctx, QueueWalkInCalled, ev)
}
