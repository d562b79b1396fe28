package validation

// TriggerSchema is the payload every fulfillment trigger accepts, whether it
// arrives as Zeebe job variables or as an asynq task.
var TriggerSchema = MustCompileSchema(`{
	"type": "object",
	"required": ["applicationId"],
	"properties": {
		"applicationId": {
			"type": "integer",
			"minimum": 1,
			"description": "Primary key of the application to fulfill"
		}
	}
}`)
