package instance

import "github.com/angelmondragon/salessavvy-storefront/pkg/env"

// GetID names this process in logs. DYNO is honored for hosted runs.
func GetID() string {
	return env.Get("SALESSAVVY_INSTANCE_ID", env.Get("DYNO", "local"))
}
