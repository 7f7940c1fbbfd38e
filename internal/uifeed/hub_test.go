package uifeed

import "testing"

func TestPublishDeliversToSubscriber(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe("topic-a")

	hub.Publish("topic-a", []byte("hello"))

	select {
	case data := <-sub.Send:
		if string(data) != "hello" {
			t.Fatalf("want hello, got %q", data)
		}
	default:
		t.Fatal("expected message on subscriber channel")
	}
}

func TestPublishDoesNotCrossTopics(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe("topic-a")

	hub.Publish("topic-b", []byte("nope"))

	select {
	case data := <-sub.Send:
		t.Fatalf("unexpected delivery across topics: %q", data)
	default:
	}
}

func TestPublishDropsOldestWhenFull(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe("topic-a")

	for i := 0; i < subscriberBuffer+5; i++ {
		hub.Publish("topic-a", []byte{byte(i)})
	}

	if len(sub.Send) != subscriberBuffer {
		t.Fatalf("want buffer full at %d, got %d", subscriberBuffer, len(sub.Send))
	}
	if first := <-sub.Send; first[0] != byte(5) {
		t.Fatalf("want oldest surviving message 5, got %d", first[0])
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe("topic-a")
	hub.Unsubscribe("topic-a", sub)

	_, ok := <-sub.Send
	if ok {
		t.Fatal("expected channel closed after unsubscribe")
	}
}

func TestTokenMintAndValidate(t *testing.T) {
	minter := NewTokenMinter([]byte("test-secret"))

	tok, err := minter.Mint("s1")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	id, err := minter.SessionID(tok)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if id != "s1" {
		t.Fatalf("want s1, got %s", id)
	}
}

func TestTokenValidateRejectsWrongSecret(t *testing.T) {
	minter := NewTokenMinter([]byte("test-secret"))
	other := NewTokenMinter([]byte("other-secret"))

	tok, err := minter.Mint("s1")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := other.SessionID(tok); err == nil {
		t.Fatal("expected validation to fail with wrong secret")
	}
}
