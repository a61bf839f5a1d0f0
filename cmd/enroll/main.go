// Command enroll reads a CSV of contacts and enrolls each phone number into
// the questionnaire through the server's operator API.
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/immuned/rheumabot/internal/api"
	"github.com/immuned/rheumabot/internal/middleware"
)

func main() {
	csvPath := flag.String("csv", "contacts.csv", "CSV file with a phone-number column")
	column := flag.String("column", "numero", "normalized header name of the phone column")
	server := flag.String("server", "http://localhost:8080", "rheumabot server base URL")
	flag.Parse()

	phones, skipped, err := readPhones(*csvPath, *column)
	if err != nil {
		log.Fatalf("read %s: %v", *csvPath, err)
	}
	if skipped > 0 {
		log.Printf("%d rows skipped (missing or invalid phone number)", skipped)
	}
	if len(phones) == 0 {
		log.Fatalf("no valid phone numbers in %s", *csvPath)
	}

	outcome, err := enroll(*server, phones)
	if err != nil {
		log.Fatalf("enroll: %v", err)
	}
	for phone, status := range outcome {
		fmt.Printf("%s\t%s\n", phone, status)
	}
}

var nonWord = regexp.MustCompile(`\W`)

// cleanHeader normalizes a CSV header the way the contact exports need:
// strip non-word characters and lowercase, so "Número " matches "numero".
func cleanHeader(h string) string {
	return strings.ToLower(nonWord.ReplaceAllString(h, ""))
}

func readPhones(path, column string) ([]string, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	col := -1
	for i, h := range header {
		if cleanHeader(h) == column {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, 0, fmt.Errorf("column %q not found in header %v", column, header)
	}

	var phones []string
	skipped := 0
	seen := map[string]bool{}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		if col >= len(row) {
			skipped++
			continue
		}
		phone := strings.TrimSpace(row[col])
		if phone == "" || !api.ValidPhone(phone) {
			skipped++
			continue
		}
		phone = strings.TrimPrefix(phone, "+")
		if seen[phone] {
			continue
		}
		seen[phone] = true
		phones = append(phones, phone)
	}
	return phones, skipped, nil
}

func enroll(server string, phones []string) (map[string]string, error) {
	token, err := middleware.SignOpsToken(10 * time.Minute)
	if err != nil {
		return nil, fmt.Errorf("sign ops token: %w", err)
	}
	body, err := json.Marshal(map[string]any{"phones": phones})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(server, "/")+"/api/enroll", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	var out struct {
		Outcome map[string]string `json:"outcome"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Outcome, nil
}
