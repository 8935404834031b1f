package publisher

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/models"
)

// NATSPublisher publishes one message per simulated vehicle on
// <prefix>.<route>.<trip>
type NATSPublisher struct {
	nc          *nats.Conn
	prefix      string
	logSubjects bool
	metrics     PublisherMetrics
}

// PublisherMetrics is the subset of the collector the publisher reports to
type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

// NewNATSPublisher connects to url and publishes under prefix; m may be nil
func NewNATSPublisher(url, prefix string, logSubjects bool, m PublisherMetrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("sendai-bus-poller"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Printf("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &NATSPublisher{nc: nc, prefix: prefix, logSubjects: logSubjects, metrics: m}, nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

// PositionMessage is the JSON payload of one vehicle update
type PositionMessage struct {
	TripID     string    `json:"tripId"`
	RouteID    string    `json:"routeId"`
	RouteName  string    `json:"routeName"`
	Headsign   string    `json:"headsign"`
	Color      string    `json:"color"`
	Timestamp  time.Time `json:"timestamp"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Bearing    *float64  `json:"bearing,omitempty"`
	Progress   float64   `json:"progress"`
	SnapshotID string    `json:"snapshotId"`
}

// NewPositionMessage converts a located vehicle into its wire form
func NewPositionMessage(vp models.VehiclePosition, at time.Time, snapshotID string) PositionMessage {
	return PositionMessage{
		TripID:     vp.TripID,
		RouteID:    vp.RouteID,
		RouteName:  vp.RouteName,
		Headsign:   vp.Headsign,
		Color:      vp.Color,
		Timestamp:  at.UTC(),
		Lat:        vp.Lat(),
		Lon:        vp.Lng(),
		Bearing:    vp.Bearing,
		Progress:   vp.Progress,
		SnapshotID: snapshotID,
	}
}

// Subject returns the subject a route/trip pair is published on
func Subject(prefix, routeID, tripID string) string {
	tokens := []string{subjectToken(routeID), subjectToken(tripID)}
	if prefix = strings.Trim(prefix, ". "); prefix != "" {
		tokens = append([]string{prefix}, tokens...)
	}
	return strings.Join(tokens, ".")
}

func (p *NATSPublisher) PublishPosition(msg PositionMessage) error {
	subject := Subject(p.prefix, msg.RouteID, msg.TripID)
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if p.logSubjects {
		log.Printf("nats publish subject=%s", subject)
	}
	start := time.Now()
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

// Flush waits until the server has processed everything published so far
func (p *NATSPublisher) Flush() error {
	return p.nc.Flush()
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
