package httpapi

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// createAlertSchemaJSON validates POST /alerts bodies per §6's documented
// shape before a request ever reaches the Dispatch Engine.
const createAlertSchemaJSON = `{
  "type": "object",
  "required": ["treeId", "alertType", "alertSource", "thresholdBreached"],
  "properties": {
    "treeId": {"type": "string", "minLength": 1},
    "alertType": {"type": "string", "enum": ["high_temperature", "high_wind", "drought", "storm", "calendar_event"]},
    "alertSource": {"type": "string", "enum": ["weather", "calendar"]},
    "calendarEventId": {"type": "string"},
    "weatherSnapshot": {
      "type": "object",
      "properties": {
        "temperature": {"type": "number"},
        "windSpeed": {"type": "number"},
        "humidity": {"type": "number"},
        "rainfall": {"type": "number"},
        "description": {"type": "string"}
      }
    },
    "thresholdBreached": {
      "type": "object",
      "required": ["field", "value", "threshold"],
      "properties": {
        "field": {"type": "string"},
        "value": {"type": ["number", "string"]},
        "threshold": {"type": ["number", "string", "array"]}
      }
    }
  }
}`

var (
	createAlertSchemaLoader gojsonschema.JSONLoader
	createAlertSchemaOnce   sync.Once
)

func getCreateAlertSchemaLoader() gojsonschema.JSONLoader {
	createAlertSchemaOnce.Do(func() {
		createAlertSchemaLoader = gojsonschema.NewStringLoader(createAlertSchemaJSON)
	})
	return createAlertSchemaLoader
}

// validateCreateAlertBody validates raw JSON body bytes against the
// POST /alerts schema, returning a single combined error message on
// failure.
func validateCreateAlertBody(body []byte) error {
	result, err := gojsonschema.Validate(getCreateAlertSchemaLoader(), gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("httpapi: validate request body: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msg := ""
	for i, desc := range result.Errors() {
		if i > 0 {
			msg += "; "
		}
		msg += desc.String()
	}
	return fmt.Errorf("%s", msg)
}
