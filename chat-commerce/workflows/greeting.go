package workflows

import (
	"fmt"
	"strings"
	"time"
)

// storeZone is the storefront's local time; greetings follow it, not the worker's clock
var storeZone = time.FixedZone("IST", 5*60*60+30*60)

// greetingFor builds the welcome line of a fresh session
func greetingFor(name string, now time.Time) string {
	hour := now.In(storeZone).Hour()

	var greeting string
	if hour < 12 {
		greeting = "Good morning"
	} else if hour < 18 {
		greeting = "Good afternoon"
	} else {
		greeting = "Good evening"
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Sprintf("%s! Welcome to our store. What are you shopping for today?", greeting)
	}
	return fmt.Sprintf("%s, %s! Welcome to our store. What are you shopping for today?", greeting, name)
}
