package elastic

import (
	"bytes"
	"context"
	"fmt"

	es "github.com/elastic/go-elasticsearch/v8"
)

const (
	IdxEvents       = "events_v1"
	IdxParticipants = "participants_v1"
	IdxCertificates = "certificates_v1"
)

const (
	eventMapping = `{"settings":{"number_of_shards":1},"mappings":{"dynamic":"strict","properties":{
		"title":{"type":"text"},"description":{"type":"text"},"location":{"type":"keyword"},
		"status":{"type":"keyword"},"date":{"type":"date"},"participants_count":{"type":"integer"},
		"updated_at":{"type":"date"}
	}}}`
	participantMapping = `{"settings":{"number_of_shards":1},"mappings":{"dynamic":"strict","properties":{
		"event_id":{"type":"keyword"},"user_id":{"type":"keyword"},"name":{"type":"text"},
		"email":{"type":"keyword"},"status":{"type":"keyword"},"has_evaluated":{"type":"boolean"},
		"quiz_passed":{"type":"boolean"},"updated_at":{"type":"date"}
	}}}`
	certificateMapping = `{"settings":{"number_of_shards":1},"mappings":{"dynamic":"strict","properties":{
		"participant_id":{"type":"keyword"},"event_id":{"type":"keyword"},
		"participant_name":{"type":"text"},"event_title":{"type":"text"},
		"certificate_number":{"type":"keyword"},"verification_code":{"type":"keyword"},
		"issued_at":{"type":"date"},"emailed":{"type":"boolean"},"updated_at":{"type":"date"}
	}}}`
)

func EnsureIndexes(ctx context.Context, c *es.Client) error {
	for _, idx := range []struct{ name, mapping string }{
		{IdxEvents, eventMapping},
		{IdxParticipants, participantMapping},
		{IdxCertificates, certificateMapping},
	} {
		if err := ensure(ctx, c, idx.name, idx.mapping); err != nil {
			return err
		}
	}
	return nil
}

func ensure(ctx context.Context, c *es.Client, index, body string) error {
	exists, err := c.Indices.Exists([]string{index}, c.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", index, err)
	}
	exists.Body.Close()
	if exists.StatusCode == 200 {
		return nil
	}
	res, err := c.Indices.Create(index, c.Indices.Create.WithBody(bytes.NewBufferString(body)), c.Indices.Create.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("create index %s: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", index, res.String())
	}
	return nil
}
