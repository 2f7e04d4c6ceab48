// Command loadgen drives spec scenario 5 (compare 10^6 tiles against a
// seeded index in 1000 batches of 1000) by seeding `NUM_AOIS` state-sized
// AOIs via worker-add's topic and then publishing `NUM_BATCHES` tile-batch
// work items onto worker-compare's topic, each referencing a local payload
// object written under OBJECT_ROOT. Adapted from the teacher's
// cmd/loadgen/cmd/baseline-loadgen smoke scripts (direct redis/sarama calls
// against a running stack) into a synthetic work generator for this
// service's own dispatcher loops.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/IBM/sarama"
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

type row struct {
	PKAndModel string `json:"pk_and_model"`
	Geometry   string `json:"geometry"`
}

// squareAround returns a small GeoJSON polygon square centered at (lat, lon),
// standing in for a state/tile footprint without needing real shapefiles.
func squareAround(lat, lon, halfDegree float64) string {
	coords := [][2]float64{
		{lon - halfDegree, lat - halfDegree},
		{lon + halfDegree, lat - halfDegree},
		{lon + halfDegree, lat + halfDegree},
		{lon - halfDegree, lat + halfDegree},
		{lon - halfDegree, lat - halfDegree},
	}
	b, _ := json.Marshal(map[string]any{
		"type":        "Polygon",
		"coordinates": [][][2]float64{coords},
	})
	return string(b)
}

func writeNDJSON(path string, rows []row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

func publishEnvelope(prod sarama.SyncProducer, topic, bucket, key string) error {
	msg, err := json.Marshal(map[string]any{
		"Records": []map[string]any{{
			"s3": map[string]any{
				"bucket": map[string]string{"name": bucket},
				"object": map[string]string{"key": key},
			},
		}},
	})
	if err != nil {
		return err
	}
	body, err := json.Marshal(map[string]string{"Message": string(msg)})
	if err != nil {
		return err
	}
	_, _, err = prod.SendMessage(&sarama.ProducerMessage{Topic: topic, Value: sarama.ByteEncoder(body)})
	return err
}

func main() {
	objectRoot := getenv("OBJECT_ROOT", "./testdata/objects")
	bucket := getenv("OBJECT_BUCKET", "loadgen")
	brokers := strings.Split(getenv("KAFKA_BROKERS", "localhost:9092"), ",")
	addTopic := getenv("KAFKA_ADD_TOPIC", "aoi-work-add")
	compareTopic := getenv("KAFKA_COMPARE_TOPIC", "aoi-work-compare")

	numAOIs := getint("NUM_AOIS", 50)
	numBatches := getint("NUM_BATCHES", 1000)
	tilesPerBatch := getint("TILES_PER_BATCH", 1000)

	seed := rand.New(rand.NewSource(1))

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Version = sarama.V2_5_0_0
	prod, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "loadgen: producer:", err)
		os.Exit(1)
	}
	defer prod.Close()

	// Seed numAOIs state-sized AOIs (scenario 5's "50 state polygons").
	aoiRows := make([]row, numAOIs)
	for i := 0; i < numAOIs; i++ {
		lat := -60 + 120*float64(i)/float64(numAOIs)
		lon := -170 + 340*float64((i*37)%numAOIs)/float64(numAOIs)
		aoiRows[i] = row{PKAndModel: fmt.Sprintf("state_%03d", i), Geometry: squareAround(lat, lon, 2.0)}
	}
	seedKey := "seed/states.ndjson"
	if err := writeNDJSON(filepath.Join(objectRoot, bucket, seedKey), aoiRows); err != nil {
		fmt.Fprintln(os.Stderr, "loadgen: write seed object:", err)
		os.Exit(1)
	}
	if err := publishEnvelope(prod, addTopic, bucket, seedKey); err != nil {
		fmt.Fprintln(os.Stderr, "loadgen: publish seed batch:", err)
		os.Exit(1)
	}
	fmt.Printf("loadgen: seeded %d AOIs via %s\n", numAOIs, addTopic)

	// Publish numBatches tile batches, each replicating the seeded
	// AOI footprints so every tile equals a state polygon (scenario 5).
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	for b := 0; b < numBatches; b++ {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "loadgen: timed out publishing batches")
			os.Exit(1)
		default:
		}

		tiles := make([]row, tilesPerBatch)
		for i := 0; i < tilesPerBatch; i++ {
			aoi := aoiRows[seed.Intn(numAOIs)]
			tiles[i] = row{PKAndModel: fmt.Sprintf("tile_%d_%d", b, i), Geometry: aoi.Geometry}
		}
		key := fmt.Sprintf("batches/%06d.ndjson", b)
		if err := writeNDJSON(filepath.Join(objectRoot, bucket, key), tiles); err != nil {
			fmt.Fprintln(os.Stderr, "loadgen: write batch object:", err)
			os.Exit(1)
		}
		if err := publishEnvelope(prod, compareTopic, bucket, key); err != nil {
			fmt.Fprintln(os.Stderr, "loadgen: publish batch:", err)
			os.Exit(1)
		}
	}
	fmt.Printf("loadgen: published %d batches x %d tiles via %s\n", numBatches, tilesPerBatch, compareTopic)
}
