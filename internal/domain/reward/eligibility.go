package reward

// ClaimedSet is a set of reward ids already claimed by a user, for O(1)
// membership tests during eligibility computation.
type ClaimedSet map[string]struct{}

// NewClaimedSet builds a ClaimedSet from a user's claims.
func NewClaimedSet(claims []Claim) ClaimedSet {
	set := make(ClaimedSet, len(claims))
	for _, c := range claims {
		set[c.RewardID] = struct{}{}
	}
	return set
}

// Contains reports whether the reward id is in the set.
func (s ClaimedSet) Contains(rewardID string) bool {
	_, ok := s[rewardID]
	return ok
}

// Eligible returns the definitions the user qualifies for and has not yet
// claimed. A reward is eligible when the user has enough points and, for
// extra rewards, an active subscription. Input order is preserved.
func Eligible(defs []Definition, claimed ClaimedSet, points int64, subscribed bool) []Definition {
	var eligible []Definition
	for _, d := range defs {
		if d.Extra && !subscribed {
			continue
		}
		if points < d.PointsRequired {
			continue
		}
		if claimed.Contains(d.ID) {
			continue
		}
		eligible = append(eligible, d)
	}
	return eligible
}

// Forfeited returns the definitions whose point requirement exceeds the
// given balance. Used after a cancellation to find claims the user can no
// longer hold. Input order is preserved.
func Forfeited(defs []Definition, points int64) []Definition {
	var lost []Definition
	for _, d := range defs {
		if points < d.PointsRequired {
			lost = append(lost, d)
		}
	}
	return lost
}
