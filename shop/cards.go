/*
cards.go - Loyalty cards and point accrual

PURPOSE:
  Keeps the minimal card registry the points workflow needs: card codes and
  their point balances, plus the sale-to-card attachment consumed when a sale
  is paid. The customer registry those cards would normally belong to is an
  external collaborator and stays out of this repository.

POINTS:
  A paid sale earns floor(total / 10) points (ledger.ComputePoints) on the
  card attached to it at payment time.
*/
package shop

import "fmt"

// CreateCard registers a new loyalty card with zero points and returns its
// 10-digit code.
func (s *Shop) CreateCard() string {
	code := fmt.Sprintf("%010d", len(s.cards)+1)
	for {
		if _, taken := s.cards[code]; !taken {
			break
		}
		code = fmt.Sprintf("%010d", mustAtoi(code)+1)
	}
	s.cards[code] = 0
	return code
}

func mustAtoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}

// AttachCardToSale links a card to a sale so payment accrues its points.
// ok=false when the card or the sale is unknown.
func (s *Shop) AttachCardToSale(saleID int, cardCode string) bool {
	if _, ok := s.cards[cardCode]; !ok {
		return false
	}
	if _, ok := s.book.GetSale(saleID); !ok {
		return false
	}
	s.cardBySale[saleID] = cardCode
	return true
}

// ModifyPointsOnCard adds delta points to the card (delta may be negative).
// ok=false for an unknown card or when the result would be negative.
func (s *Shop) ModifyPointsOnCard(cardCode string, delta int) bool {
	points, ok := s.cards[cardCode]
	if !ok || points+delta < 0 {
		return false
	}
	s.cards[cardCode] = points + delta
	return true
}

// CardPoints returns the card's point balance. ok=false for unknown codes.
func (s *Shop) CardPoints(cardCode string) (int, bool) {
	points, ok := s.cards[cardCode]
	return points, ok
}

// accruePoints credits the attached card after a successful sale payment.
func (s *Shop) accruePoints(saleID int) {
	code, ok := s.cardBySale[saleID]
	if !ok {
		return
	}
	if sale, ok := s.book.GetSale(saleID); ok {
		s.cards[code] += sale.ComputePoints()
	}
	delete(s.cardBySale, saleID)
}
