package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// expenseAnalysisPrompt instructs the model to emit the analyzed-expense
// payload shape directly, so the rest of the pipeline is agnostic about
// which analysis service produced it.
const expenseAnalysisPrompt = `You are an expense document analysis service. You are given one image per page of an invoice or receipt. Read all text carefully and return ONLY valid JSON in this exact structure, with one entry in "ExpenseDocuments" per page image, in page order:

{
  "ExpenseDocuments": [
    {
      "SummaryFields": [
        {"Type": {"Text": "TOTAL"}, "ValueDetection": {"Text": "100.50"}}
      ],
      "LineItemGroups": [
        {"LineItems": [{"LineItemExpenseFields": []}]}
      ],
      "Blocks": [
        {"BlockType": "LINE", "Text": "one detected line of text"}
      ]
    }
  ]
}

Rules:
- SummaryFields Type.Text must use these canonical names where the value is present on the page: TAX_PAYER_ID, VENDOR_VAT_NUMBER, PO_NUMBER, SUBTOTAL, TAX, TOTAL, INVOICE_RECEIPT_ID, ORDER_DATE, DUE_DATE, DELIVERY_DATE.
- For the receiver shipping address, emit fields CITY, STATE, COUNTRY and STREET with "GroupProperties": [{"Types": ["RECEIVER_SHIP_TO"]}].
- Dates must be in YYYY-MM-DD format. Amounts must be plain decimal numbers without currency symbols.
- LineItems must contain one entry per purchased line item on the invoice.
- Blocks must contain one {"BlockType": "LINE"} entry per visual line of text, top to bottom.
- Omit fields you cannot find. Do not invent values.
- Do not include any text before or after the JSON. Do not use markdown code blocks.`

// Gemini implements the Analyzer interface using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Analyzer instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

// AnalyzeExpense runs field detection on a document and returns the
// analyzed-expense payload
func (g *Gemini) AnalyzeExpense(document []byte, contentType string) (*AnalyzedExpense, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	// Normalize to one PNG per page
	pages, err := preparePages(document, contentType)
	if err != nil {
		return nil, err
	}

	parts := make([]genai.Part, 0, len(pages)+1)
	for _, page := range pages {
		parts = append(parts, genai.ImageData("png", page))
	}
	parts = append(parts, genai.Text(expenseAnalysisPrompt))

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	exp, err := parseAnalyzedJSON(responseText.String())
	if err != nil {
		return nil, fmt.Errorf("parsing analyzed expense: %w", err)
	}

	return exp, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
