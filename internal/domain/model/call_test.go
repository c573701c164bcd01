package model_test

import (
	"encoding/json"
	"testing"
	"time"

	model "github.com/callsight/callsight/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestWebhookEvent(t *testing.T) {
	convey.Convey("Given a provider webhook event", t, func() {
		raw := `{
			"type": "post_call_transcription",
			"data": {
				"conversation_id": "conv_1",
				"metadata": {
					"phone_call": {"agent_number": "+15550100"},
					"call_duration_secs": 312
				},
				"transcript": [{"role": "agent", "message": "Hello"}]
			}
		}`

		convey.Convey("When decoding it from JSON", func() {
			var event model.WebhookEvent
			err := json.Unmarshal([]byte(raw), &event)

			convey.Convey("Then the interpreted fields should resolve", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(event.Type, convey.ShouldEqual, model.EventTypeTranscription)
				convey.So(event.ConversationID(), convey.ShouldEqual, "conv_1")
				convey.So(event.AgentNumber(), convey.ShouldEqual, "+15550100")
			})
		})

		convey.Convey("When the nested metadata is missing", func() {
			var event model.WebhookEvent
			err := json.Unmarshal([]byte(`{"type":"post_call_transcription","data":{"conversation_id":"conv_2"}}`), &event)

			convey.Convey("Then the accessors should return empty strings", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(event.ConversationID(), convey.ShouldEqual, "conv_2")
				convey.So(event.AgentNumber(), convey.ShouldEqual, "")
			})
		})

		convey.Convey("When the nested fields have the wrong shape", func() {
			var event model.WebhookEvent
			err := json.Unmarshal([]byte(`{"data":{"conversation_id":42,"metadata":{"phone_call":"+15550100"}}}`), &event)

			convey.Convey("Then the accessors should return empty strings", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(event.ConversationID(), convey.ShouldEqual, "")
				convey.So(event.AgentNumber(), convey.ShouldEqual, "")
			})
		})
	})
}

func TestCallRecord_Document(t *testing.T) {
	convey.Convey("Given a stored call record", t, func() {
		receivedAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
		rec := model.CallRecord{
			ConversationID: "conv_1",
			Payload: model.CallPayload{
				"conversation_id": "conv_1",
				"transcript":      []any{"line one"},
			},
			ReceivedAt: receivedAt,
		}

		convey.Convey("When rendering it as a document", func() {
			doc := rec.Document()

			convey.Convey("Then it should carry the payload plus the record key", func() {
				convey.So(doc["id"], convey.ShouldEqual, "conv_1")
				convey.So(doc["receivedAt"], convey.ShouldEqual, receivedAt.Format(time.RFC3339Nano))
				convey.So(doc["transcript"], convey.ShouldResemble, []any{"line one"})
			})

			convey.Convey("And mutating the document should not touch the record", func() {
				doc["transcript"] = nil
				convey.So(rec.Payload["transcript"], convey.ShouldResemble, []any{"line one"})
			})
		})
	})
}

func TestIngestOutcome_String(t *testing.T) {
	convey.Convey("Given the ingest outcomes", t, func() {
		convey.Convey("Then each should have a stable label", func() {
			convey.So(model.OutcomeStored.String(), convey.ShouldEqual, "stored")
			convey.So(model.OutcomeIgnored.String(), convey.ShouldEqual, "ignored")
			convey.So(model.OutcomeUnmapped.String(), convey.ShouldEqual, "unmapped")
			convey.So(model.OutcomeBadMapping.String(), convey.ShouldEqual, "bad_mapping")
		})
	})
}
