package broker

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// Consumer drains the notification queues and appends one line per message
// to a delivery log.  The log stands in for the SMS/email gateway and is
// what support staff grep when a guest says they never got a message.
type Consumer struct {
    URL     string
    LogPath string
    Log     logrus.FieldLogger
}

// Run keeps a connection open until ctx is cancelled, reconnecting with
// exponential backoff (1s doubling to 30s) when the broker goes away.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            c.Log.WithError(err).WithField("retry_in", backoff.String()).Warn("notification-consumer: failed to dial broker")
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.Log.WithError(err).Warn("notification-consumer: consume loop ended; reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.Log.WithError(err).Warn("notification-consumer: set QoS failed")
    }

    closed := make(chan string, len(AllQueues))
    for _, queue := range AllQueues {
        if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
            return fmt.Errorf("queue declare %s: %w", queue, err)
        }
        msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
        if err != nil {
            return fmt.Errorf("queue consume %s: %w", queue, err)
        }
        go func(queue string, msgs <-chan amqp.Delivery) {
            for d := range msgs {
                if err := c.handle(queue, d.Body); err != nil {
                    c.Log.WithError(err).WithField("queue", queue).Error("notification-consumer: handle message failed")
                    _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                    continue
                }
                _ = d.Ack(false)
            }
            closed <- queue
        }(queue, msgs)
    }

    select {
    case <-ctx.Done():
        return ctx.Err()
    case queue := <-closed:
        return errors.New("deliveries channel closed: " + queue)
    }
}

func (c *Consumer) handle(queue string, body []byte) error {
    line, err := FormatDelivery(queue, body)
    if err != nil {
        return err
    }
    path := c.LogPath
    if path == "" {
        path = filepath.Join("logs", "notifications.log")
    }
    if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatDelivery renders one message as a single human-friendly log line.
func FormatDelivery(queue string, body []byte) (string, error) {
    if queue == QueueWalkInCalled {
        var ev WalkInCalledEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return "", fmt.Errorf("unmarshal: %w", err)
        }
        return fmt.Sprintf("[%s] Walk-in called | entry=%s | outlet_id=%d | guest=%q | phone=%s | party=%d | table=%s | confirm_by=%s\n",
            ev.OccurredAt, ev.Code, ev.OutletID, ev.CustomerName, ev.CustomerPhone, ev.PartySize, orDash(ev.Table), orDash(ev.ConfirmBy)), nil
    }

    var ev ReservationEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return "", fmt.Errorf("unmarshal: %w", err)
    }
    var title, extra string
    switch queue {
    case QueueReservationConfirmed:
        title = "Reservation confirmed"
        extra = fmt.Sprintf(" | tables=[%s]", strings.Join(ev.Tables, ","))
    case QueueReservationCanceled:
        title = "Reservation canceled"
        extra = fmt.Sprintf(" | reason=%q", ev.Reason)
    case QueueReservationReminder:
        title = "Reservation reminder"
        extra = " | kind=" + ev.ReminderKind
    default:
        return "", fmt.Errorf("unknown queue %q", queue)
    }
    return fmt.Sprintf("[%s] %s | code=%s | reservation_id=%d | outlet_id=%d | guest=%q | phone=%s | party=%d | starts_at=%s%s\n",
        ev.OccurredAt, title, ev.Code, ev.ReservationID, ev.OutletID, ev.CustomerName, ev.CustomerPhone, ev.PartySize, ev.StartsAt, extra), nil
}

func orDash(s string) string {
    if s == "" {
        return "-"
    }
    return s
}
