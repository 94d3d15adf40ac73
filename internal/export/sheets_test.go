package export

import "testing"

func TestAddSheetRequestsOnlyMissing(t *testing.T) {
	reqs := addSheetRequests(
		[]string{"HISTORY_alice", "HOLDINGS_alice"},
		[]string{"HISTORY_bob", "HOLDINGS_bob", "HISTORY_bob"},
	)

	if len(reqs) != 2 {
		t.Fatalf("got %d requests, want 2", len(reqs))
	}
	if reqs[0].AddSheet.Properties.Title != "HISTORY_bob" || reqs[1].AddSheet.Properties.Title != "HOLDINGS_bob" {
		t.Errorf("titles = %s, %s", reqs[0].AddSheet.Properties.Title, reqs[1].AddSheet.Properties.Title)
	}
}

func TestAddSheetRequestsNoneMissing(t *testing.T) {
	if reqs := addSheetRequests([]string{"TARGET_alice"}, []string{"TARGET_alice"}); len(reqs) != 0 {
		t.Errorf("got %d requests, want 0", len(reqs))
	}
}

func TestValueRangesQuoteTitles(t *testing.T) {
	ranges := valueRanges([]Sheet{
		{Name: "HOLDINGS_alice", Rows: [][]any{{"Ticker"}}},
		{Name: "HOLDINGS_o'neil"},
	})

	if ranges[0].Range != "'HOLDINGS_alice'!A1" {
		t.Errorf("range = %s", ranges[0].Range)
	}
	if ranges[1].Range != "'HOLDINGS_o''neil'!A1" {
		t.Errorf("range = %s", ranges[1].Range)
	}
}
