package main

import (
	"context"
	"os"
	"strings"

	"alfredoptarigan/underwriting-intake/internal/config"
	"alfredoptarigan/underwriting-intake/internal/logger"
	"alfredoptarigan/underwriting-intake/internal/services"
)

// Embeds every condition dictionary entry and stores it in Qdrant so the
// matcher can resolve free-text terms by similarity.
func main() {
	cfg := config.Load()
	log := logger.Must(cfg.Server.LogDebug).Sugar()
	defer func() { _ = log.Sync() }()

	log.Info("🚀 Starting dictionary ingestion...")

	if cfg.Gemini.APIKey == "" || cfg.Qdrant.URL == "" {
		log.Fatal("❌ GEMINI_API_KEY and QDRANT_URL must both be set")
	}

	dict, err := services.LoadConditionDictionary(cfg.Catalog.DictionaryPath)
	if err != nil {
		log.Fatalf("❌ Failed to load dictionary: %v", err)
	}

	geminiService, err := services.NewGeminiService(cfg.Gemini, cfg.Extraction.MaxTextChars, log.Desugar())
	if err != nil {
		log.Fatalf("❌ Failed to initialize Gemini: %v", err)
	}

	qdrantService, err := services.NewQdrantService(
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Collection,
		log.Desugar(),
	)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Qdrant: %v", err)
	}

	ctx := context.Background()

	if err := qdrantService.InitCollection(ctx); err != nil {
		log.Fatalf("❌ Failed to initialize collection: %v", err)
	}

	entries := dict.Entries()
	successCount := 0
	failCount := 0

	for i, entry := range entries {
		embedding, err := geminiService.GenerateEmbedding(ctx, services.EntryEmbeddingText(entry))
		if err != nil {
			log.Errorf("   ❌ Failed to embed %s: %v", entry.Code, err)
			failCount++
			continue
		}

		if err := qdrantService.UpsertEntry(ctx, entry, embedding); err != nil {
			log.Errorf("   ❌ Failed to store %s: %v", entry.Code, err)
			failCount++
			continue
		}
		successCount++

		if (i+1)%5 == 0 || i == len(entries)-1 {
			log.Infof("   📊 Progress: %d/%d entries stored", i+1, len(entries))
		}
	}

	log.Info(strings.Repeat("=", 60))
	log.Info("📊 Ingestion Summary:")
	log.Infof("   ✅ Successful: %d entries", successCount)
	log.Infof("   ❌ Failed: %d entries", failCount)
	log.Info(strings.Repeat("=", 60))

	if failCount > 0 {
		log.Warn("⚠️  Some entries failed to ingest. Please check the logs above.")
		os.Exit(1)
	}

	log.Info("✅ All entries ingested successfully!")
}
