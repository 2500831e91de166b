package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"freelance-billing/internal/ai"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load() // Load .env if present

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Fatal("OPENAI_API_KEY not set")
	}

	drafter := ai.NewDrafter(apiKey, os.Getenv("OPENAI_MODEL"))
	ctx := context.Background()

	request := "Landing page design for a bakery, two rounds of revisions, plus basic SEO setup. " +
		"Give them 10% off the design work. VAT is 7%."
	if len(os.Args) > 1 {
		request = strings.Join(os.Args[1:], " ")
	}

	fmt.Printf("DRAFTING QUOTE: %s\n", request)
	draft, err := drafter.DraftQuote(ctx, request)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	fmt.Printf("\n--- DRAFT ---\n")
	fmt.Printf("Confidence: %.2f\n", draft.Confidence)
	fmt.Printf("Reasoning: %s\n", draft.Reasoning)
	fmt.Printf("Tax rate: %s\n", draft.TaxRate)

	fmt.Printf("\nItems:\n")
	for _, item := range draft.Items {
		fmt.Printf("- %s: %s (discount %s%%)\n", item.Title, item.Price, item.DiscountPercent)
	}

	if _, _, err := draft.LineItems(); err != nil {
		log.Fatalf("Draft does not validate: %v", err)
	}
	fmt.Println("\nDraft validates.")
}
