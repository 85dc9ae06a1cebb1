package db

import "testing"

func TestDescribe(t *testing.T) {
	tests := []struct {
		sql, op, table string
	}{
		{"INSERT INTO notifications (id, user_id) VALUES ($1, $2)", "insert", "notifications"},
		{"\n  SELECT id FROM project_activity_log WHERE project_id = $1", "select", "project_activity_log"},
		{"UPDATE notifications SET is_read = true", "update", "notifications"},
		{"DELETE FROM notifications WHERE id = $1", "delete", "notifications"},
		{"BEGIN", "begin", "unknown"},
		{"", "unknown", "unknown"},
	}
	for _, tt := range tests {
		op, table := describe(tt.sql)
		if op != tt.op || table != tt.table {
			t.Errorf("describe(%q) = (%s, %s), want (%s, %s)", tt.sql, op, table, tt.op, tt.table)
		}
	}
}
