package elastic

import (
	"fmt"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/sirupsen/logrus"
)

func Connect(url string, log logrus.FieldLogger) (*es.Client, error) {
	client, err := es.NewClient(es.Config{Addresses: []string{url}})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	log.Infof("✅ Connected to Elasticsearch at %s", url)
	return client, nil
}
