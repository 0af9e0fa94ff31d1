package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/bytedance/sonic"
)

type Post struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
	Tags        []string `json:"tags"`
	Status      string   `json:"status"`
	Locale      string   `json:"locale"`
	Price       float64  `json:"price"`
	Rating      float64  `json:"rating"`
	CreatedAt   string   `json:"createdAt"`
}

type Location struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

var (
	categories = []string{"technology", "travel", "food", "science", "culture", "business"}

	topics = []string{
		"Search Engines", "Distributed Systems", "City Guides", "Street Food",
		"Quantum Computing", "Museum Tours", "Startup Funding", "Remote Work",
		"Hiking Trails", "Coffee Roasting", "Machine Learning", "Photography",
	}

	adjectives = []string{
		"Complete", "Practical", "Essential", "Modern", "Definitive",
		"Beginner's", "Advanced", "Illustrated", "Concise", "Updated",
	}

	tags = []string{
		"featured", "editors-pick", "trending", "longread", "howto",
		"interview", "review", "opinion", "archive", "translated",
	}

	locales = []string{"en", "de", "fr", "es", "nl"}

	cityNames = []string{
		"Amsterdam", "Berlin", "Lisbon", "Prague", "Vienna",
		"Oslo", "Dublin", "Porto", "Ghent", "Zurich",
	}
)

func randomString(arr []string) string {
	return arr[rand.Intn(len(arr))]
}

func randomSubset(arr []string, max int) []string {
	count := rand.Intn(max) + 1
	result := make([]string, 0, count)
	used := make(map[string]bool)

	for i := 0; i < count; i++ {
		item := randomString(arr)
		if !used[item] {
			result = append(result, item)
			used[item] = true
		}
	}

	return result
}

func generatePost(id int) Post {
	status := "published"
	if rand.Float32() < 0.2 {
		status = "draft"
	}

	topic := randomString(topics)
	createdAt := time.Now().Add(-time.Duration(rand.Intn(365*24)) * time.Hour)

	return Post{
		ID:          fmt.Sprintf("%d", id),
		Title:       fmt.Sprintf("The %s Guide to %s", randomString(adjectives), topic),
		Content:     fmt.Sprintf("Everything you need to know about %s, with worked examples and field notes.", topic),
		Description: fmt.Sprintf("An in-depth look at %s.", topic),
		Categories:  randomSubset(categories, 2),
		Tags:        randomSubset(tags, 3),
		Status:      status,
		Locale:      randomString(locales),
		Price:       float64(rand.Intn(50)) + rand.Float64(),
		Rating:      float64(rand.Intn(5)) + rand.Float64(),
		CreatedAt:   createdAt.Format(time.RFC3339),
	}
}

func generateLocation(id int) Location {
	return Location{
		ID:   fmt.Sprintf("%d", id),
		Name: fmt.Sprintf("%s %s", randomString(cityNames), randomString([]string{"Office", "Venue", "Studio", "Workshop"})),
		// Roughly central Europe
		Latitude:  45.0 + rand.Float64()*10.0,
		Longitude: 2.0 + rand.Float64()*15.0,
	}
}

func writeJSONL(filename string, count int, generate func(int) any) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("error creating file %s: %w", filename, err)
	}
	defer file.Close()

	for i := 1; i <= count; i++ {
		data, err := sonic.Marshal(generate(i))
		if err != nil {
			return fmt.Errorf("error marshaling document: %w", err)
		}
		file.Write(data)
		file.WriteString("\n")
	}

	return nil
}

func main() {
	rand.Seed(time.Now().UnixNano())

	// Create benchmarks directory
	if err := os.MkdirAll("benchmarks", 0755); err != nil {
		fmt.Printf("Error creating directory: %v\n", err)
		os.Exit(1)
	}

	// Generate different dataset sizes
	sizes := []int{1000, 5000, 10000}

	for _, size := range sizes {
		filename := fmt.Sprintf("benchmarks/test_data_%d.jsonl", size)
		fmt.Printf("Generating %d posts to %s...\n", size, filename)

		if err := writeJSONL(filename, size, func(i int) any { return generatePost(i) }); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		fmt.Printf("✓ Generated %s\n", filename)
	}

	// Locations for geo search testing
	locFile := "benchmarks/test_locations.jsonl"
	fmt.Printf("Generating 200 locations to %s...\n", locFile)
	if err := writeJSONL(locFile, 200, func(i int) any { return generateLocation(i) }); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	fmt.Printf("✓ Generated %s\n", locFile)

	// Create a default test_data.jsonl copy
	defaultFile := "benchmarks/test_data.jsonl"
	if err := os.Remove(defaultFile); err != nil && !os.IsNotExist(err) {
		fmt.Printf("Warning: could not remove old default file: %v\n", err)
	}

	// Copy the 1000 item file as default
	input, err := os.ReadFile("benchmarks/test_data_1000.jsonl")
	if err != nil {
		fmt.Printf("Error reading source file: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(defaultFile, input, 0644); err != nil {
		fmt.Printf("Error creating default file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n✓ All test data generated successfully!\n")
	fmt.Printf("  - test_data_1000.jsonl (1,000 documents)\n")
	fmt.Printf("  - test_data_5000.jsonl (5,000 documents)\n")
	fmt.Printf("  - test_data_10000.jsonl (10,000 documents)\n")
	fmt.Printf("  - test_locations.jsonl (200 documents)\n")
	fmt.Printf("  - test_data.jsonl (default, 1,000 documents)\n")
}
