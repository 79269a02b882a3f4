package llm

import (
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// DefaultInstructions is the system prompt used when the user has not
// uploaded an instructions document.
const DefaultInstructions = `You are a financial analyst. The user message contains historical monthly
stock prices as CSV. For every symbol in the data, predict the closing price
for each of the next 12 months.

Reply in exactly three parts:

1. A fenced code block tagged csv with the header symbol,month,predicted_price
   and one row per symbol and month. Months use the YYYY-MM format.
2. An HTML <table> showing the same predictions.
3. A section starting with "Explanations:" that justifies each prediction in
   one or two sentences.`

// chatTemplate renders the instructions as the system message and the CSV
// payload as the user message.
var chatTemplate = prompt.FromMessages(schema.FString,
	schema.SystemMessage("{instructions}"),
	schema.UserMessage("Historical stock prices (CSV):\n\n{data}"),
)
