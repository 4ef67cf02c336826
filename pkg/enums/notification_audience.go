package enums

import "fmt"

// NotificationAudience identifies who a notification targets.
type NotificationAudience string

const (
	NotificationAudienceBuyer    NotificationAudience = "buyer"
	NotificationAudienceMerchant NotificationAudience = "merchant"
	NotificationAudienceAdmin    NotificationAudience = "admin"
)

var validNotificationAudiences = []NotificationAudience{
	NotificationAudienceBuyer,
	NotificationAudienceMerchant,
	NotificationAudienceAdmin,
}

// String implements fmt.Stringer.
func (a NotificationAudience) String() string {
	return string(a)
}

// IsValid reports whether the value is a known NotificationAudience.
func (a NotificationAudience) IsValid() bool {
	for _, candidate := range validNotificationAudiences {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseNotificationAudience converts raw input into a NotificationAudience.
func ParseNotificationAudience(value string) (NotificationAudience, error) {
	for _, candidate := range validNotificationAudiences {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification audience %q", value)
}
