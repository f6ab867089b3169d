package booking

import (
	"github.com/temple-caravans/caravan-api/internal/models"
)

// decideStatus is the waitlist policy: a registration gets a seat if
// the bus has room at the instant of booking, otherwise it waits.
// There is no queue beyond creation order, and promotion is a manual
// admin action that does not enforce FIFO.
func decideStatus(activeCount int64, busCapacity int) models.ParticipationStatus {
	if activeCount < int64(busCapacity) {
		return models.ParticipationActive
	}
	return models.ParticipationWaitlist
}
