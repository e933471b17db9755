package tools

// AllTools lists every tool the server exposes.
// Descriptions follow a fixed layout to help LLM tool selection:
// - USE WHEN: Natural language triggers
// - NOT FOR: Disambiguation from similar tools
// - PARAMETERS: Key arguments
// - RETURNS: What the tool returns
var AllTools = []ToolSpec{
	{
		Name:     "getWeather",
		Method:   "GetWeather",
		Title:    "Get Weather",
		Category: "weather",
		Description: `Get current weather conditions for a city or place.

USE WHEN: User asks "what's the weather in X", "is it raining in X", "how warm is it in X".

NOT FOR: General conversation (use chat instead).

PARAMETERS:
- location: City or place name (required)

RETURNS: Location, temperature (°C), condition, humidity (%) and wind speed (km/h).`,
		Parameters: objectSchema(
			[2]string{"location", "City or place name, e.g. London"},
		),
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "chat",
		Method:   "Chat",
		Title:    "Chat",
		Category: "chat",
		Description: `Send a chat message and get a reply. The conversation remembers the last 10 messages per sender.

USE WHEN: User greets, asks a general question, or continues a conversation.

NOT FOR: Weather lookups (use getWeather) or delivering a message to someone else (use send-message).

PARAMETERS:
- message: Text of the chat message (required)
- sender: Name of the person sending it (required)

RETURNS: The message, sender, timestamp and the assistant's reply.`,
		Parameters: objectSchema(
			[2]string{"message", "Text of the chat message"},
			[2]string{"sender", "Name of the person sending the message"},
		),
		OpenWorld: true,
	},
	{
		Name:     "send-message",
		Method:   "SendMessage",
		Title:    "Send Message",
		Category: "messaging",
		Description: `Deliver a message to a named recipient.

USE WHEN: User says "tell X that...", "send a message to X", "let X know...".

NOT FOR: Talking to the assistant itself (use chat).

PARAMETERS:
- to: Recipient (required)
- content: Message body (required)

RETURNS: Delivery confirmation with a message id and timestamp.`,
		Parameters: objectSchema(
			[2]string{"to", "Recipient of the message"},
			[2]string{"content", "Message body"},
		),
	},
}
