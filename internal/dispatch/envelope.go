package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/errs"
)

// snsEnvelope is the outer body: {Message: <string>, ...}.
type snsEnvelope struct {
	Message string `json:"Message"`
}

// s3Message is Message decoded: either a control event ({"Event":
// "s3:TestEvent"}) or {Records: [{s3: {bucket: {name}, object: {key}}}]}.
// Records can (and in production does) hold more than one entry — the
// ground-truth Lambda's get_pq_df loops over every sns_event and concats
// every referenced object's rows into one dataframe.
type s3Message struct {
	Event   string `json:"Event,omitempty"`
	Records []struct {
		S3 struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records,omitempty"`
}

// objectRef is one payload object a work item's envelope references.
type objectRef struct {
	Bucket string
	Key    string
}

// parseEnvelope decodes a work record's body into the objectRefs it
// references, per spec §6. A body whose Message decodes to
// {"Event":"s3:TestEvent"} is reported via isTestEvent and must be
// skipped-and-acked without further processing.
func parseEnvelope(body string) (refs []objectRef, isTestEvent bool, err error) {
	var env snsEnvelope
	if jsonErr := json.Unmarshal([]byte(body), &env); jsonErr != nil {
		return nil, false, errs.New(errs.PayloadMalformed, "dispatch.parseEnvelope", fmt.Errorf("decode body: %w", jsonErr))
	}

	var msg s3Message
	if jsonErr := json.Unmarshal([]byte(env.Message), &msg); jsonErr != nil {
		return nil, false, errs.New(errs.PayloadMalformed, "dispatch.parseEnvelope", fmt.Errorf("decode message: %w", jsonErr))
	}

	if msg.Event == "s3:TestEvent" {
		return nil, true, nil
	}
	if len(msg.Records) == 0 {
		return nil, false, errs.New(errs.PayloadMalformed, "dispatch.parseEnvelope", fmt.Errorf("message has no Records"))
	}

	refs = make([]objectRef, 0, len(msg.Records))
	for _, rec := range msg.Records {
		if rec.S3.Bucket.Name == "" || rec.S3.Object.Key == "" {
			return nil, false, errs.New(errs.PayloadMalformed, "dispatch.parseEnvelope", fmt.Errorf("record missing bucket/key"))
		}
		refs = append(refs, objectRef{Bucket: rec.S3.Bucket.Name, Key: rec.S3.Object.Key})
	}
	return refs, false, nil
}
