package notifier

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/temple-caravans/caravan-api/internal/models"
)

// Notifier tells the caravan organizers about booking events. Delivery
// failures are logged and never fail the booking itself.
type Notifier interface {
	NotifyRegistration(caravan models.Caravan, registration models.Registration) error
	NotifyPromotion(caravan models.Caravan, registration models.Registration) error
	NotifyCancellation(caravan models.Caravan, registration models.Registration) error
}

type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscordNotifier(session *discordgo.Session, channelID string) *DiscordNotifier {
	return &DiscordNotifier{
		session:   session,
		channelID: channelID,
	}
}

func (n *DiscordNotifier) send(message string) error {
	if n.session == nil {
		return fmt.Errorf("discord session is nil")
	}
	if n.channelID == "" {
		return fmt.Errorf("discord channel ID is empty")
	}
	_, err := n.session.ChannelMessageSend(n.channelID, message)
	if err != nil {
		log.Printf("Failed to send discord message: %v", err)
	}
	return err
}

func (n *DiscordNotifier) NotifyRegistration(caravan models.Caravan, registration models.Registration) error {
	status := "confirmed a seat"
	if registration.ParticipationStatus == models.ParticipationWaitlist {
		status = "joined the waitlist"
	}
	return n.send(fmt.Sprintf("🚌 **New Registration**\n**Caravan:** %s\n**Participant:** %s\n**Status:** %s\n**Ordinances:** %d",
		caravan.Name,
		registration.FullName,
		status,
		len(registration.Ordinances),
	))
}

func (n *DiscordNotifier) NotifyPromotion(caravan models.Caravan, registration models.Registration) error {
	return n.send(fmt.Sprintf("🎉 **Waitlist Promotion**\n**Caravan:** %s\n**Participant:** %s now has a confirmed seat",
		caravan.Name,
		registration.FullName,
	))
}

func (n *DiscordNotifier) NotifyCancellation(caravan models.Caravan, registration models.Registration) error {
	reason := registration.CancelReason
	if reason == "" {
		reason = "no reason given"
	}
	return n.send(fmt.Sprintf("😢 **Cancellation**\n**Caravan:** %s\n**Participant:** %s\n**Reason:** %s",
		caravan.Name,
		registration.FullName,
		reason,
	))
}
