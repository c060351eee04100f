package llm

// aclPlanSchema is the JSON Schema the backend's reply must satisfy before
// it is allowed anywhere near the wire. It mirrors the envelope shape with
// the performative pinned to the allowed set and language pinned to "json".
const aclPlanSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["performative", "conversation_id", "ontology", "language", "protocol", "payload"],
  "properties": {
    "performative": {
      "type": "string",
      "enum": ["AGREE", "CANCEL", "FAILURE", "INFORM", "REFUSE", "REQUEST"]
    },
    "conversation_id": {"type": "string", "minLength": 1},
    "protocol": {"type": "string"},
    "ontology": {"type": "string"},
    "language": {"type": "string", "const": "json"},
    "reply_by": {"type": ["string", "null"]},
    "sender": {"type": ["string", "null"]},
    "receiver": {"type": ["string", "null"]},
    "payload": {
      "type": "object",
      "additionalProperties": true,
      "properties": {
        "text": {"type": ["string", "null"]},
        "tags": {"type": "array", "items": {"type": "string"}},
        "ontology_hints": {"type": "array", "items": {"type": "string"}}
      }
    }
  }
}`
