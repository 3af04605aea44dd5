package onboarding

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"avalon/internal/ports"
)

// Service handles post-auth onboarding for new users.
type Service struct {
	accounts ports.AccountPort
	rng      *rand.Rand
}

// NewService constructs an onboarding service.
// accounts must be non-nil; rng may be nil to use a time-seeded default.
func NewService(accounts ports.AccountPort, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{accounts: accounts, rng: rng}
}

// OnboardNewUser gives a newly created account a presentable display
// name so it does not show up in rooms as a raw device id.
func (s *Service) OnboardNewUser(ctx context.Context, userID string) error {
	if s.accounts == nil {
		return fmt.Errorf("onboarding service not configured")
	}

	displayName := s.generateFriendlyName()
	if err := s.accounts.UpdateProfile(ctx, userID, displayName, displayName); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

func (s *Service) generateFriendlyName() string {
	adjectives := []string{"Bold", "Loyal", "Wise", "Silent", "Gallant", "Noble", "Stern", "Merry", "Grim", "True"}
	nouns := []string{"Knight", "Squire", "Herald", "Bard", "Ranger", "Pilgrim", "Falconer", "Warden", "Smith", "Scribe"}

	adj := adjectives[s.rng.Intn(len(adjectives))]
	noun := nouns[s.rng.Intn(len(nouns))]
	num := s.rng.Intn(9000) + 1000

	return fmt.Sprintf("%s%s%d", adj, noun, num)
}
