package notify

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSweepNotification(t *testing.T) {
	n := SweepNotification("nightly", 30, 30)
	if n.Type != NotifySuccess {
		t.Errorf("Type = %v, want success", n.Type)
	}
	if n.Message != "30/30 runs passed" {
		t.Errorf("Message = %q", n.Message)
	}

	n = SweepNotification("nightly", 30, 24)
	if n.Type != NotifyWarning {
		t.Errorf("Type = %v, want warning for partial pass", n.Type)
	}
	if n.Plan != "nightly" {
		t.Errorf("Plan = %q", n.Plan)
	}

	n = SweepNotification("empty", 0, 0)
	if n.Message != "no runs executed" {
		t.Errorf("Message = %q", n.Message)
	}
}

func TestSlackNotifier_Send(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(server.URL)
	err := notifier.Send(SweepNotification("quick", 3, 3))
	if err != nil {
		t.Errorf("Send failed: %v", err)
	}
}

func TestSlackNotifier_Disabled(t *testing.T) {
	notifier := NewSlackNotifier("")
	if err := notifier.Send(Notification{Title: "x"}); err != nil {
		t.Errorf("disabled notifier should not error: %v", err)
	}
}

func TestNotificationTypeColors(t *testing.T) {
	tests := []struct {
		typ  NotificationType
		want string
	}{
		{NotifySuccess, "good"},
		{NotifyWarning, "warning"},
		{NotifyError, "danger"},
		{NotifyInfo, "#439FE0"},
	}

	for _, tt := range tests {
		got := SlackColor(tt.typ)
		if got != tt.want {
			t.Errorf("SlackColor(%v) = %s, want %s", tt.typ, got, tt.want)
		}
	}
}

func TestMultiNotifier(t *testing.T) {
	var called []string

	mock1 := &mockNotifier{name: "mock1", calls: &called}
	mock2 := &mockNotifier{name: "mock2", calls: &called}

	multi := NewMultiNotifier(mock1, mock2)
	multi.Send(Notification{Title: "Test"})

	if len(called) != 2 {
		t.Errorf("Expected 2 calls, got %d", len(called))
	}
}

type mockNotifier struct {
	name  string
	calls *[]string
}

func (m *mockNotifier) Send(n Notification) error {
	*m.calls = append(*m.calls, m.name)
	return nil
}
