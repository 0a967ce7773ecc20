package discord

import "github.com/bwmarrin/discordgo"

// ActivityKind names one of the five presence activity types the panel
// accepts for custom statuses.
type ActivityKind string

const (
	ActivityPlaying   ActivityKind = "PLAYING"
	ActivityStreaming ActivityKind = "STREAMING"
	ActivityListening ActivityKind = "LISTENING"
	ActivityWatching  ActivityKind = "WATCHING"
	ActivityCompeting ActivityKind = "COMPETING"
)

var activityTypes = map[ActivityKind]discordgo.ActivityType{
	ActivityPlaying:   discordgo.ActivityTypeGame,
	ActivityStreaming: discordgo.ActivityTypeStreaming,
	ActivityListening: discordgo.ActivityTypeListening,
	ActivityWatching:  discordgo.ActivityTypeWatching,
	ActivityCompeting: discordgo.ActivityTypeCompeting,
}

// ParseActivityKind validates a kind before anything touches the gateway.
func ParseActivityKind(s string) (ActivityKind, error) {
	k := ActivityKind(s)
	if _, ok := activityTypes[k]; !ok {
		return "", ErrInvalidActivityKind
	}
	return k, nil
}
