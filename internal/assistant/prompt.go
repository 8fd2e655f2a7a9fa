package assistant

import (
	"encoding/json"
	"fmt"

	"github.com/septivank/energy-insights/internal/db"
	"github.com/septivank/energy-insights/internal/query"
)

// maxResultRows is the row cap the generated query is told to respect.
const maxResultRows = 500

const schemaDescription = `database_name: energy_monitor
schema: public

These are the important tables of the database

table_name: device
description: contains device information like name, user_id, product_id
columns:
    id          ( UUID )
    name        ( VARCHAR(50) )
    user_id     ( INTEGER ) (Foreign Key)
    product_id  ( INTEGER ) (Foreign Key)
    created_at  ( TIMESTAMP WITH TIME ZONE )

table_name: product
description: contains product information like name, type, etc.
columns:
    id          ( INTEGER )
    name        ( VARCHAR(50) )
    type        ( VARCHAR(50) )
    description ( VARCHAR )

table_name: telemetry
description: contains timestamped telemetry data published by devices. It captures the power consumption at a given timestamp.
columns:
    timestamp     ( TIMESTAMP WITH TIME ZONE )
    device_id     ( UUID ) (Foreign Key)
    energy_watts  ( DOUBLE PRECISION )`

const exampleQuery = `-- Question: What was the energy usage of my devices in last one week?
{
    "query": "SELECT device_id, (AVG(telemetry.energy_watts) * (EXTRACT(epoch FROM (MAX(telemetry.timestamp) - MIN(telemetry.timestamp))) / 3600)) / 1000 AS total_kwh FROM telemetry WHERE device_id in ('e35a4495-5313-4a15-b854-5c196b0e94a9','2486c5ab-d4ce-45b0-aebb-9e99ced3b012') AND timestamp > now() - INTERVAL '7 days' GROUP BY device_id"
}`

// sqlSystemPrompt constrains the backend to one JSON object holding one
// SELECT over the caller's devices.
func sqlSystemPrompt(devices []db.DeviceWithProduct) (string, error) {
	inventory, err := json.MarshalIndent(devices, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode device inventory: %w", err)
	}

	return fmt.Sprintf(`You are an expert SQL assistant. Your task is to convert natural language questions into SQL queries and return it in a JSON object with a single key 'query'.
You must only generate a single, valid SQL query inside the JSON. Do not add any explanations or introductory text.
The database dialect is TimescaleDB (PostgreSQL).

%s

### Examples

%s

Below are the device details belonging to the user.
%s

You are allowed to only perform a SELECT query on the telemetry table, utilizing only the above device ids. Always limit your query to at most %d results.`,
		schemaDescription, exampleQuery, inventory, maxResultRows), nil
}

// answerPrompt asks the backend to phrase the final answer.
func answerPrompt(question string, devices []db.DeviceWithProduct, sql string, result *query.Result) (string, error) {
	inventory, err := json.Marshal(devices)
	if err != nil {
		return "", fmt.Errorf("failed to encode device inventory: %w", err)
	}
	rows, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to encode query result: %w", err)
	}

	prompt := fmt.Sprintf("Given the following user question, device details, corresponding SQL query, "+
		"and SQL result, answer the user question.\n\n"+
		"Question: %s\n"+
		"Device Details: %s\n"+
		"SQL Query: %s\n"+
		"SQL Result: %s",
		question, inventory, sql, rows)

	if result != nil && result.Truncated {
		prompt += fmt.Sprintf("\n\nThe SQL result was cut off after %d rows. Say that the answer is based on partial data.",
			len(result.Rows))
	}
	return prompt, nil
}
