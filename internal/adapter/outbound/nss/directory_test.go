package nss

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/openEuler-BaseService/polkit-pkla-compat/internal/domain/identity"
)

func testDirectory(t *testing.T, groupFile, netgroupFile string) *Directory {
	t.Helper()
	dir := t.TempDir()
	d := &Directory{
		GroupFile:    filepath.Join(dir, "group"),
		NetgroupFile: filepath.Join(dir, "netgroup"),
	}
	if err := os.WriteFile(d.GroupFile, []byte(groupFile), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(d.NetgroupFile, []byte(netgroupFile), 0o644); err != nil {
		t.Fatal(err)
	}
	return d
}

const testGroupFile = `# comment
root:x:0:
admin:x:10:john,jane
empty:x:20:
badgid:x:notanumber:john
short:x
`

func TestLookupGroupFromFile(t *testing.T) {
	d := testDirectory(t, testGroupFile, "")

	g, err := d.LookupGroupName("admin")
	if err != nil {
		t.Fatalf("LookupGroupName() error: %v", err)
	}
	if g.GID != 10 {
		t.Errorf("GID = %d, want 10", g.GID)
	}
	if len(g.Members) != 2 || g.Members[0] != "john" || g.Members[1] != "jane" {
		t.Errorf("Members = %v, want [john jane]", g.Members)
	}

	g, err = d.LookupGroupID(20)
	if err != nil {
		t.Fatalf("LookupGroupID() error: %v", err)
	}
	if g.Name != "empty" || len(g.Members) != 0 {
		t.Errorf("LookupGroupID(20) = %+v, want empty group", g)
	}
}

func TestLookupGroupSkipsMalformedLines(t *testing.T) {
	d := testDirectory(t, testGroupFile, "")

	if _, err := d.LookupGroupName("badgid"); err == nil {
		t.Error("a group line with a non-numeric gid should not resolve from the file")
	}
	if _, err := d.LookupGroupName("short"); err == nil {
		t.Error("a truncated group line should not resolve from the file")
	}
}

const testNetgroupFile = `# machines and people
baz (host1,john,example.com) (,jane,)
bar (-,-,-) (,root,) baz
continued (host1,alice,) \
  (host2,bob,)
cycle1 cycle2
cycle2 cycle1 (,carol,)
`

func TestNetgroup(t *testing.T) {
	d := testDirectory(t, "", testNetgroupFile)

	triples, err := d.Netgroup("baz")
	if err != nil {
		t.Fatalf("Netgroup() error: %v", err)
	}
	want := []identity.NetgroupTriple{
		{Host: "host1", User: "john", Domain: "example.com"},
		{Host: "", User: "jane", Domain: ""},
	}
	if len(triples) != len(want) {
		t.Fatalf("Netgroup() = %v, want %v", triples, want)
	}
	for i := range want {
		if triples[i] != want[i] {
			t.Errorf("Netgroup()[%d] = %+v, want %+v", i, triples[i], want[i])
		}
	}
}

func TestNetgroupFlattensNested(t *testing.T) {
	d := testDirectory(t, "", testNetgroupFile)

	triples, err := d.Netgroup("bar")
	if err != nil {
		t.Fatalf("Netgroup() error: %v", err)
	}
	// Two direct triples plus the two from the nested baz.
	if len(triples) != 4 {
		t.Fatalf("Netgroup(bar) returned %d triples, want 4: %v", len(triples), triples)
	}
	if triples[0].User != "-" || triples[1].User != "root" {
		t.Errorf("direct triples should come first: %v", triples)
	}
}

func TestNetgroupLineContinuation(t *testing.T) {
	d := testDirectory(t, "", testNetgroupFile)

	triples, err := d.Netgroup("continued")
	if err != nil {
		t.Fatalf("Netgroup() error: %v", err)
	}
	if len(triples) != 2 || triples[1].Host != "host2" || triples[1].User != "bob" {
		t.Errorf("Netgroup(continued) = %v, continuation line was not joined", triples)
	}
}

func TestNetgroupCycleTerminates(t *testing.T) {
	d := testDirectory(t, "", testNetgroupFile)

	triples, err := d.Netgroup("cycle1")
	if err != nil {
		t.Fatalf("Netgroup() error: %v", err)
	}
	if len(triples) != 1 || triples[0].User != "carol" {
		t.Errorf("Netgroup(cycle1) = %v, want the single carol triple", triples)
	}
}

func TestNetgroupUnknown(t *testing.T) {
	d := testDirectory(t, "", testNetgroupFile)

	if _, err := d.Netgroup("nope"); err == nil {
		t.Error("Netgroup() should fail for an unknown netgroup")
	}
}
