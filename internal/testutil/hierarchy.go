package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/alexanderramin/framebudget/internal/domain"
)

// Hierarchy is a small two-view tree shared by aggregation and mutation tests.
//
//	coordinator                         planning
//	8 Streets (CMain)            <->    8 Streets (PMain)
//	  8 01 Renovation (CRenov)   <->      8 01 Renovation (PRenov)
//	    Eastern [location] (CEast)          Eastern suurpiiri (PEastDistrict)
//	                                          Street works (PEastSub)
//	  8 02 New (CNew)            <->      8 02 New (PNew)
//	                                    Kallio [location] (PLocKallio)
//	                                    Bridges [group] (Group)
//
// Projects with planned values for Year:
//
//	P1  class PRenov, group Group, budget 1000   Year:100  Year+1:200
//	P2  class PEastSub, location PLocKallio      Year:50
//	P3  class PNew, group Group, budget 500      Year:300
//	P4  class PRenov, not programmed             Year:9999
type Hierarchy struct {
	Year int

	CMain, CRenov, CEast, CNew                 string
	PMain, PRenov, PEastDistrict, PEastSub, PNew string
	PLocKallio, Group                           string

	P1, P2, P3, P4 string
}

// SeedHierarchy writes the Hierarchy fixture to database using plain SQL.
func SeedHierarchy(t *testing.T, database *sql.DB, year int) *Hierarchy {
	t.Helper()
	h := &Hierarchy{
		Year:          year,
		CMain:         "c-main",
		CRenov:        "c-renov",
		CEast:         "c-east",
		CNew:          "c-new",
		PMain:         "p-main",
		PRenov:        "p-renov",
		PEastDistrict: "p-east-district",
		PEastSub:      "p-east-sub",
		PNew:          "p-new",
		PLocKallio:    "p-loc-kallio",
		Group:         "g-bridges",
		P1:            "proj-1",
		P2:            "proj-2",
		P3:            "proj-3",
		P4:            "proj-4",
	}

	type row struct {
		id, name, path, parent, view, kind string
	}
	nodes := []row{
		{h.CMain, "8 Streets", "8 Streets", "", "coordinator", "class"},
		{h.CRenov, "8 01 Renovation", "8 Streets/8 01 Renovation", h.CMain, "coordinator", "class"},
		{h.CEast, "Eastern", "8 Streets/8 01 Renovation/Eastern", h.CRenov, "coordinator", "location"},
		{h.CNew, "8 02 New", "8 Streets/8 02 New", h.CMain, "coordinator", "class"},
		{h.PMain, "8 Streets", "8 Streets", "", "planning", "class"},
		{h.PRenov, "8 01 Renovation", "8 Streets/8 01 Renovation", h.PMain, "planning", "class"},
		{h.PEastDistrict, "Eastern suurpiiri", "8 Streets/8 01 Renovation/Eastern suurpiiri", h.PRenov, "planning", "class"},
		{h.PEastSub, "Street works", "8 Streets/8 01 Renovation/Eastern suurpiiri/Street works", h.PEastDistrict, "planning", "class"},
		{h.PNew, "8 02 New", "8 Streets/8 02 New", h.PMain, "planning", "class"},
		{h.PLocKallio, "Kallio", "Kallio", "", "planning", "location"},
		{h.Group, "Bridges", "Bridges", "", "planning", "group"},
	}
	ts := time.Now().UTC().Format(time.RFC3339)
	for _, n := range nodes {
		var parent any
		if n.parent != "" {
			parent = n.parent
		}
		mustExec(t, database, `INSERT INTO nodes (id, name, path, parent_id, tree_view, kind, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, n.id, n.name, n.path, parent, n.view, n.kind, ts, ts)
	}
	for _, pair := range [][2]string{{h.CMain, h.PMain}, {h.CRenov, h.PRenov}, {h.CNew, h.PNew}} {
		mustExec(t, database, `UPDATE nodes SET related_to = ? WHERE id = ?`, pair[1], pair[0])
		mustExec(t, database, `UPDATE nodes SET related_to = ? WHERE id = ?`, pair[0], pair[1])
	}

	type proj struct {
		id                     string
		programmed             int
		class, location, group any
		budget                 string
	}
	projects := []proj{
		{h.P1, 1, h.PRenov, nil, h.Group, "1000"},
		{h.P2, 1, h.PEastSub, h.PLocKallio, nil, "0"},
		{h.P3, 1, h.PNew, nil, h.Group, "500"},
		{h.P4, 0, h.PRenov, nil, nil, "0"},
	}
	for _, p := range projects {
		mustExec(t, database, `INSERT INTO projects (id, name, programmed, class_id, location_id, group_id, budget, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, p.id, p.id, p.programmed, p.class, p.location, p.group, p.budget, ts, ts)
	}

	records := []struct {
		project string
		year    int
		value   string
	}{
		{h.P1, year, "100"},
		{h.P1, year + 1, "200"},
		{h.P2, year, "50"},
		{h.P3, year, "300"},
		{h.P4, year, "9999"},
	}
	for _, r := range records {
		mustExec(t, database, `INSERT INTO project_records (project_id, year, value, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)`, r.project, r.year, r.value, ts, ts)
	}
	return h
}

// SetFrame writes a frame budget for a coordinator node directly.
func SetFrame(t *testing.T, database *sql.DB, nodeID string, year int, budget string, frameView bool) {
	t.Helper()
	ts := time.Now().UTC().Format(time.RFC3339)
	flag := 0
	if frameView {
		flag = 1
	}
	mustExec(t, database, `INSERT INTO frame_records (node_id, year, for_frame_view, frame_budget, budget_change, created_at, updated_at)
		VALUES (?, ?, ?, ?, '0', ?, ?)
		ON CONFLICT(node_id, year, for_frame_view) DO UPDATE SET frame_budget = excluded.frame_budget`,
		nodeID, year, flag, budget, ts, ts)
}

// NodeByID loads a node straight from the table.
func NodeByID(t *testing.T, database *sql.DB, id string) *domain.Node {
	t.Helper()
	var n domain.Node
	var parent, related sql.NullString
	var view, kind string
	err := database.QueryRow(`SELECT id, name, path, parent_id, tree_view, kind, related_to FROM nodes WHERE id = ?`, id).
		Scan(&n.ID, &n.Name, &n.Path, &parent, &view, &kind, &related)
	if err != nil {
		t.Fatalf("loading node %s: %v", id, err)
	}
	n.View = domain.View(view)
	n.Kind = domain.NodeKind(kind)
	if parent.Valid {
		n.ParentID = &parent.String
	}
	if related.Valid {
		n.RelatedTo = &related.String
	}
	return &n
}

func mustExec(t *testing.T, database *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := database.Exec(query, args...); err != nil {
		t.Fatalf("seeding: %v", err)
	}
}
