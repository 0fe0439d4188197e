package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"papertrader/interfaces"
)

// ResearchService handles AI-assisted stock research via Google's Gemini API
type ResearchService struct {
	apiKey     string
	httpClient *http.Client
	model      string
}

// geminiRequest represents a request to Gemini API
type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

// geminiResponse represents the response from Gemini API
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// TickerResearch is a structured research note for one ticker
type TickerResearch struct {
	GeneratedAt  time.Time `json:"generated_at"`
	Symbol       string    `json:"symbol"`
	Rating       string    `json:"rating"` // BUY|HOLD|SELL
	Thesis       string    `json:"thesis"`
	KeyRisks     []string  `json:"key_risks"`
	FullAnalysis string    `json:"full_analysis"`
}

// NewResearchService creates a new research service
func NewResearchService(apiKey string) *ResearchService {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}

	return &ResearchService{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		model: "gemini-2.0-flash-exp",
	}
}

// AnalyzeTicker produces a concise research note for a ticker, aware of the
// caller's current position in it if any.
func (rs *ResearchService) AnalyzeTicker(symbol string, currentPrice float64, portfolio *interfaces.Portfolio) (*TickerResearch, error) {
	var position strings.Builder
	position.WriteString("No current position.")
	if portfolio != nil {
		if h := portfolio.FindHolding(symbol); h != nil {
			position.Reset()
			position.WriteString(fmt.Sprintf("Currently holding %.0f shares at average cost %.2f.", h.Shares, h.CostBasis))
		}
		for _, o := range portfolio.Options {
			if o.Underlying == symbol {
				position.WriteString(fmt.Sprintf(" Also holding %d %s contract(s), strike %.2f, expiring %s.",
					o.Contracts, o.OptionType, o.Strike, o.Expiration.Format("2006-01-02")))
			}
		}
	}

	prompt := fmt.Sprintf(`You are a financial analyst AI helping a paper-trading student evaluate a stock.

TICKER: %s
CURRENT PRICE: %.2f
POSITION: %s

Provide a JSON response with this EXACT structure:
{
  "rating": "BUY|HOLD|SELL",
  "thesis": "2-3 sentence investment thesis",
  "key_risks": ["risk 1", "risk 2"]
}

Keep it BRIEF and DENSE. This is an educational simulation, not financial advice.`, symbol, currentPrice, position.String())

	response, err := rs.generateContent(prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	research := &TickerResearch{
		GeneratedAt:  time.Now(),
		Symbol:       symbol,
		FullAnalysis: response,
	}

	// Try to extract the JSON block from the response; fall back to raw text.
	jsonStart := strings.Index(response, "{")
	jsonEnd := strings.LastIndex(response, "}")
	if jsonStart >= 0 && jsonEnd > jsonStart {
		jsonStr := response[jsonStart : jsonEnd+1]
		var parsed struct {
			Rating   string   `json:"rating"`
			Thesis   string   `json:"thesis"`
			KeyRisks []string `json:"key_risks"`
		}
		if err := json.Unmarshal([]byte(jsonStr), &parsed); err == nil {
			research.Rating = parsed.Rating
			research.Thesis = parsed.Thesis
			research.KeyRisks = parsed.KeyRisks
		}
	}

	return research, nil
}

// generateContent calls the Gemini API
func (rs *ResearchService) generateContent(prompt string) (string, error) {
	url := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s",
		rs.model, rs.apiKey)

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{
				Parts: []geminiPart{
					{Text: prompt},
				},
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := rs.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}
