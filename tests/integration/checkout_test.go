//go:build integration

package integration

import (
	"net/http"
	"testing"
)

// TestCheckoutAndCancel walks the full settlement loop for one user: fill the
// cart, check out, verify points and auto-claimed rewards, then cancel the
// order and verify the claw-back.
func TestCheckoutAndCancel(t *testing.T) {
	const userID = "demo-alex"

	// 2x booster box (139.50) + 1x ETB (54.99) = 333.99 -> 3 points.
	resp := doPut(t, "/api/carts/"+userID+"/items/prod-sv-booster-box", map[string]any{"quantity": 2})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("put cart item: expected 204, got %d", resp.StatusCode)
	}

	resp = doPut(t, "/api/carts/"+userID+"/items/prod-151-etb", map[string]any{"quantity": 1})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("put cart item: expected 204, got %d", resp.StatusCode)
	}

	resp = doGet(t, "/api/carts/"+userID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get cart: expected 200, got %d", resp.StatusCode)
	}
	cart := decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if len(cart.Items) != 2 {
		t.Fatalf("expected 2 cart lines, got %d", len(cart.Items))
	}
	if cart.Total != 333.99 {
		t.Fatalf("expected cart total 333.99, got %v", cart.Total)
	}

	resp = doPost(t, "/api/checkout/"+userID, map[string]any{
		"firstName": "Alex",
		"lastName":  "Chan",
		"address":   "1 Main St",
		"city":      "Bangkok",
		"zipCode":   "10100",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d", resp.StatusCode)
	}
	out := decodeJSON[checkoutResponse](t, resp)
	resp.Body.Close()

	if out.OrderID == "" {
		t.Fatal("expected order id")
	}
	if out.Total != 333.99 {
		t.Fatalf("expected order total 333.99, got %v", out.Total)
	}
	if out.PointsEarned != 3 {
		t.Fatalf("expected 3 points earned, got %d", out.PointsEarned)
	}
	if out.Balance != 3 {
		t.Fatalf("expected balance 3, got %d", out.Balance)
	}

	// Only the 2-point reward is within reach; it is claimed automatically.
	if len(out.Awarded) != 1 || out.Awarded[0].ID != "reward-sleeves" {
		t.Fatalf("expected reward-sleeves awarded, got %+v", out.Awarded)
	}

	// The cart is cleared by checkout.
	resp = doGet(t, "/api/carts/"+userID)
	cart = decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if len(cart.Items) != 0 {
		t.Fatalf("expected empty cart after checkout, got %d lines", len(cart.Items))
	}

	// The order is visible and Processing.
	resp = doGet(t, "/api/users/"+userID+"/orders")
	orders := decodeJSON[[]orderResponse](t, resp)
	resp.Body.Close()
	if len(orders) != 1 || orders[0].Status != "Processing" {
		t.Fatalf("expected one Processing order, got %+v", orders)
	}

	// Cancellation without confirmation is refused.
	resp = doPost(t, "/api/orders/"+out.OrderID+"/cancel", map[string]any{
		"userId": userID, "confirmed": false,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unconfirmed cancel: expected 400, got %d", resp.StatusCode)
	}

	// Confirmed cancellation claws back the points and the reward.
	resp = doPost(t, "/api/orders/"+out.OrderID+"/cancel", map[string]any{
		"userId": userID, "confirmed": true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d", resp.StatusCode)
	}
	cancelled := decodeJSON[cancelResponse](t, resp)
	resp.Body.Close()

	if cancelled.PointsDeducted != 3 {
		t.Fatalf("expected 3 points deducted, got %d", cancelled.PointsDeducted)
	}
	if cancelled.Balance != 0 {
		t.Fatalf("expected balance 0, got %d", cancelled.Balance)
	}
	if len(cancelled.LostRewards) != 1 || cancelled.LostRewards[0] != "Free Sleeve Pack" {
		t.Fatalf("expected Free Sleeve Pack lost, got %v", cancelled.LostRewards)
	}

	resp = doGet(t, "/api/users/"+userID)
	prof := decodeJSON[profileResponse](t, resp)
	resp.Body.Close()
	if prof.Point != 0 {
		t.Fatalf("expected 0 points after cancel, got %d", prof.Point)
	}
}

// TestSubscriberExtraReward verifies that subscriber-only rewards are claimed
// for subscribed users when the balance allows.
func TestSubscriberExtraReward(t *testing.T) {
	const userID = "demo-riley"

	// 9x Charizard ex (89.99) = 809.91 -> 8 points.
	resp := doPut(t, "/api/carts/"+userID+"/items/prod-charizard-ex", map[string]any{"quantity": 9})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("put cart item: expected 204, got %d", resp.StatusCode)
	}

	resp = doPost(t, "/api/checkout/"+userID, map[string]any{
		"firstName": "Riley",
		"lastName":  "Nakorn",
		"address":   "2 Side St",
		"city":      "Bangkok",
		"zipCode":   "10200",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d", resp.StatusCode)
	}
	out := decodeJSON[checkoutResponse](t, resp)
	resp.Body.Close()

	if out.PointsEarned != 8 {
		t.Fatalf("expected 8 points earned, got %d", out.PointsEarned)
	}

	awarded := make(map[string]bool, len(out.Awarded))
	for _, r := range out.Awarded {
		awarded[r.ID] = true
	}
	for _, want := range []string{"reward-sleeves", "reward-booster", "reward-judge-promo"} {
		if !awarded[want] {
			t.Fatalf("expected %s awarded, got %+v", want, out.Awarded)
		}
	}
	if awarded["reward-playmat"] {
		t.Fatalf("reward-playmat needs 10 points, should not be awarded: %+v", out.Awarded)
	}
}

func TestAdminRoutesRequireKey(t *testing.T) {
	body := map[string]any{"name": "Test Binder", "price": 9.99, "stock": 1}

	resp := doPost(t, "/api/products", body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", resp.StatusCode)
	}

	resp = doPostAdmin(t, "/api/products", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 with admin key, got %d", resp.StatusCode)
	}
	created := decodeJSON[productResponse](t, resp)
	resp.Body.Close()
	if created.Name != "Test Binder" {
		t.Fatalf("unexpected created product: %+v", created)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	resp := doPost(t, "/api/checkout/demo-alex", map[string]any{
		"firstName": "Alex", "lastName": "Chan",
		"address": "1 Main St", "city": "Bangkok", "zipCode": "10100",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty cart, got %d", resp.StatusCode)
	}
	body := decodeJSON[errorResponse](t, resp)
	if body.Code != http.StatusBadRequest {
		t.Fatalf("unexpected error body: %+v", body)
	}
}
