package schemas

// RegisterAssistantTools registers the stock personal-assistant tools used by
// the benchmark suites and the CLI.
func RegisterAssistantTools(registry *Registry) {
	registry.Register(NewSchema("get_weather", "Get current weather for a location").
		AddParam("location", TypeString, "City name", true).
		Build())

	registry.Register(NewSchema("set_alarm", "Set an alarm for a given time").
		AddParam("hour", TypeInteger, "Hour to set the alarm for", true).
		AddParam("minute", TypeInteger, "Minute to set the alarm for", true).
		Build())

	registry.Register(NewSchema("send_message", "Send a message to a contact").
		AddParam("recipient", TypeString, "Name of the person to send the message to", true).
		AddParam("message", TypeString, "The message content to send", true).
		Build())

	registry.Register(NewSchema("create_reminder", "Create a reminder with a title and time").
		AddParam("title", TypeString, "Reminder title", true).
		AddParam("time", TypeString, "Time for the reminder (e.g. 3:00 PM)", true).
		Build())

	registry.Register(NewSchema("search_contacts", "Search for a contact by name").
		AddParam("query", TypeString, "Name to search for", true).
		Build())

	registry.Register(NewSchema("play_music", "Play a song or playlist").
		AddParam("song", TypeString, "Song or playlist name", true).
		Build())

	registry.Register(NewSchema("set_timer", "Set a countdown timer").
		AddParam("minutes", TypeInteger, "Number of minutes", true).
		Build())
}

// AssistantTools returns a registry preloaded with the stock tools.
func AssistantTools() *Registry {
	r := NewRegistry()
	RegisterAssistantTools(r)
	return r
}
