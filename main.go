package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"atlas/api"
	"atlas/config"
	"atlas/dedup"
	"atlas/metadata"
	"atlas/pipeline"
	"atlas/storage"
	"atlas/tagging"
)

func main() {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	store, err := metadata.NewRedisStoreFromEnv()
	if err != nil {
		log.Fatalf("Failed to connect to metadata store: %v", err)
	}
	defer store.Close()

	urls, err := newURLChecker()
	if err != nil {
		log.Fatalf("Failed to set up content storage: %v", err)
	}

	deduplicator, err := dedup.NewIntegratedDeduplicator(store, urls, store, dedup.IntegratedConfig{})
	if err != nil {
		log.Fatalf("Failed to create deduplicator: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		startPipeline(ctx, strings.Split(brokers, ","), deduplicator)
	}

	addr := ":" + config.GetEnv("PORT", config.DefaultPort)
	r := api.NewRouter(deduplicator)
	log.Printf("Starting API server on %s", addr)
	log.Println("API endpoints available:")
	log.Println("  GET  /api/health")
	log.Println("  POST /api/dedup/check")
	log.Println("  POST /api/dedup/similar")
	log.Println("  GET  /api/dedup/stats")
	log.Println("  POST /api/dedup/cleanup")

	if err := r.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// newURLChecker picks S3 storage when S3_BUCKET is set, local disk
// otherwise. With BLOOM_ENABLED, a Redis Bloom filter screens out URLs
// that were definitely never stored before the probe runs.
func newURLChecker() (dedup.URLChecker, error) {
	var checker dedup.URLChecker
	var err error
	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		checker, err = storage.NewS3Store(context.Background(), storage.S3Config{
			Bucket:  bucket,
			Prefix:  os.Getenv("S3_PREFIX"),
			Region:  os.Getenv("AWS_REGION"),
			Profile: os.Getenv("AWS_PROFILE"),
		})
	} else {
		checker, err = storage.NewFileStore(config.GetEnv("CONTENT_ROOT", config.DefaultContentRoot))
	}
	if err != nil {
		return nil, err
	}

	if config.GetEnvBool("BLOOM_ENABLED", false) {
		bloom, err := metadata.NewURLBloomFromEnv()
		if err != nil {
			return nil, err
		}
		checker = metadata.NewSeenFilter(bloom, checker)
	}
	return checker, nil
}

// startPipeline wires the Kafka candidate consumer and decision publisher.
func startPipeline(ctx context.Context, brokers []string, deduplicator *dedup.IntegratedDeduplicator) {
	publisher, err := pipeline.NewKafkaPublisher(brokers,
		config.GetEnv("DECISION_TOPIC", config.DefaultDecisionTopic),
		config.GetEnv("REVIEW_TOPIC", config.DefaultReviewTopic))
	if err != nil {
		log.Fatalf("Failed to create decision publisher: %v", err)
	}

	processor := pipeline.NewProcessor(deduplicator, publisher)
	if provider := tagging.NewDefaultEmbeddingsProvider(os.Getenv("EMBEDDING_MODEL")); provider != nil {
		tagger, err := tagging.NewTagger(provider, tagging.TaggerConfig{})
		if err != nil {
			log.Fatalf("Failed to create topic tagger: %v", err)
		}
		processor = processor.WithTagger(tagger)
		log.Printf("Topic tagging enabled (model: %s)", provider.ModelName())
	}

	consumer, err := pipeline.NewConsumer(pipeline.ConsumerConfig{
		Brokers: brokers,
		Topic:   config.GetEnv("CANDIDATE_TOPIC", config.DefaultCandidateTopic),
		GroupID: config.GetEnv("CONSUMER_GROUP", config.DefaultConsumerGroup),
		Handler: processor,
	})
	if err != nil {
		log.Fatalf("Failed to create candidate consumer: %v", err)
	}

	if err := consumer.Start(ctx); err != nil {
		log.Fatalf("Failed to start candidate consumer: %v", err)
	}
	log.Printf("Candidate pipeline consuming from %s", strings.Join(brokers, ","))

	go func() {
		<-ctx.Done()
		if err := consumer.Close(); err != nil {
			log.Printf("Warning: failed to close consumer: %v", err)
		}
		if err := publisher.Close(); err != nil {
			log.Printf("Warning: failed to close publisher: %v", err)
		}
	}()
}
