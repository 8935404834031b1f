package handlers

import (
	"net/http"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/models"
)

// BuildVehicleFeed renders positions as a GTFS-Realtime FULL_DATASET feed.
// Entity ids are "<route_id>:<trip_id>".
func BuildVehicleFeed(positions []models.VehiclePosition, now time.Time) *gtfs.FeedMessage {
	incrementality := gtfs.FeedHeader_FULL_DATASET
	ts := uint64(now.Unix())

	feed := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Incrementality:      &incrementality,
			Timestamp:           proto.Uint64(ts),
		},
		Entity: make([]*gtfs.FeedEntity, 0, len(positions)),
	}

	for i := range positions {
		vp := &positions[i]
		pos := &gtfs.Position{
			Latitude:  proto.Float32(float32(vp.Lat())),
			Longitude: proto.Float32(float32(vp.Lng())),
		}
		if vp.Bearing != nil {
			pos.Bearing = proto.Float32(float32(*vp.Bearing))
		}

		feed.Entity = append(feed.Entity, &gtfs.FeedEntity{
			Id: proto.String(vp.RouteID + ":" + vp.TripID),
			Vehicle: &gtfs.VehiclePosition{
				Trip: &gtfs.TripDescriptor{
					TripId:  proto.String(vp.TripID),
					RouteId: proto.String(vp.RouteID),
				},
				Vehicle: &gtfs.VehicleDescriptor{
					Label: proto.String(vp.Headsign),
				},
				Position:  pos,
				Timestamp: proto.Uint64(ts),
			},
		})
	}
	return feed
}

// GetVehicleFeed handles GET /api/gtfs-rt/vehicle_positions.pb[?format=json]
func (h *VehicleHandler) GetVehicleFeed(w http.ResponseWriter, r *http.Request) {
	now := h.clock.now()
	feed := BuildVehicleFeed(h.sched.ActivePositions(now, nil), now)

	var (
		body        []byte
		err         error
		contentType string
	)
	if r.URL.Query().Get("format") == "json" {
		body, err = protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(feed)
		contentType = "application/json"
	} else {
		body, err = proto.Marshal(feed)
		contentType = "application/x-protobuf"
	}
	if err != nil {
		writeError(w, err, nil)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", cacheLive)
	w.Header().Set("X-Snapshot-Id", h.sched.Version())
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
