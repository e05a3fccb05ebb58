package catpub

import (
	"bytes"
	"encoding/json"
	"log"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	. "github.com/janelia-flyem/go/gocheck"
)

// Hook up gocheck into the "go test" runner.
func Test(t *testing.T) { TestingT(t) }

type CoreSuite struct{}

var _ = Suite(&CoreSuite{})

func (s *CoreSuite) SetUpSuite(c *C) {
	SetLogMode(WarningMode)
}

func (s *CoreSuite) TestVector3d(c *C) {
	a := Vector3d{1, 2, 3}
	b := Vector3d{4, 6, 3}
	c.Assert(a.Distance(b), Equals, 5.0)
	c.Assert(b.Subtract(a), Equals, Vector3d{3, 4, 0})
	c.Assert(a.Add(b), Equals, Vector3d{5, 8, 6})
	c.Assert(Vector3d{2, 4, 6}.DivideScalar(2), Equals, a)
	c.Assert(Vector3d{1, 0, 0}.Cross(Vector3d{0, 1, 0}), Equals, Vector3d{0, 0, 1})
	c.Assert(Vector3d{0, 3, 4}.Norm(), Equals, 5.0)
	c.Assert(Vector3d{}.Normalize(), Equals, Vector3d{})
	c.Assert(a.String(), Equals, "(1.0,2.0,3.0)")

	a.Increment(b)
	c.Assert(a, Equals, Vector3d{5, 8, 6})

	v, err := StringToVector3d("1.5, -2,3", ",")
	c.Assert(err, IsNil)
	c.Assert(v, Equals, Vector3d{1.5, -2, 3})
	_, err = StringToVector3d("1,2", ",")
	c.Assert(err, NotNil)
}

func (s *CoreSuite) TestFormatDecimal(c *C) {
	c.Assert(FormatDecimal(1), Equals, "1.0")
	c.Assert(FormatDecimal(-1), Equals, "-1.0")
	c.Assert(FormatDecimal(0.25), Equals, "0.25")
	c.Assert(FormatDecimal(12345678.5), Equals, "12345678.5")
	c.Assert(FormatDecimal(1e21), Equals, "1000000000000000000000.0")
	f, err := ParseDecimal(FormatDecimal(3.14159))
	c.Assert(err, IsNil)
	c.Assert(f, Equals, 3.14159)
}

func (s *CoreSuite) TestFillIn(c *C) {
	rename := map[string]string{"a": "A"}
	filled := FillIn(rename, []string{"a", "b"})
	c.Assert(filled, DeepEquals, map[string]string{"a": "A", "b": "b"})
	c.Assert(rename, HasLen, 1)
}

type selectionDoc struct {
	All     Selection
	None    Selection
	Names   Selection
	Missing Selection
}

func (s *CoreSuite) TestSelectionTOML(c *C) {
	var doc selectionDoc
	_, err := toml.Decode(`
all = true
none = false
names = ["b", "a", "b"]
`, &doc)
	c.Assert(err, IsNil)
	c.Assert(doc.All.All(), Equals, true)
	c.Assert(doc.All.Names(), IsNil)
	c.Assert(doc.None.Empty(), Equals, true)
	c.Assert(doc.Names.Names(), DeepEquals, []string{"a", "b"})
	c.Assert(doc.Missing.Empty(), Equals, true)
	c.Assert(doc.All.Resolve([]string{"z", "y"}), DeepEquals, []string{"y", "z"})
	c.Assert(doc.Names.Resolve([]string{"z"}), DeepEquals, []string{"a", "b"})

	_, err = toml.Decode(`names = [1, 2]`, &doc)
	c.Assert(err, NotNil)
	_, err = toml.Decode(`names = "a"`, &doc)
	c.Assert(err, NotNil)
}

func (s *CoreSuite) TestGraph(c *C) {
	g := NewGraph()
	g.AddNode("root", AnnotationNode)
	g.AddEdge("root", "mid", EdgeProperties{MetaAnnotation: true})
	g.AddEdge("mid", "leaf", EdgeProperties{MetaAnnotation: true})
	g.AddEdge("mid", "neuron 1", EdgeProperties{})
	g.AddNode("neuron 1", NeuronNode)
	g.AddNode("orphan", AnnotationNode)

	c.Assert(g.NumNodes(), Equals, 5)
	c.Assert(g.NumEdges(), Equals, 3)
	c.Assert(g.Successors("mid"), DeepEquals, []string{"leaf", "neuron 1"})
	c.Assert(g.Predecessors("leaf"), DeepEquals, []string{"mid"})
	c.Assert(g.Descendants([]string{"mid", "absent"}), DeepEquals, []string{"absent", "leaf", "mid", "neuron 1"})
	c.Assert(g.NodesOfType(NeuronNode), DeepEquals, []string{"neuron 1"})

	sub := g.Subgraph([]string{"root", "mid", "orphan"})
	c.Assert(sub.Nodes(), DeepEquals, []string{"mid", "orphan", "root"})
	c.Assert(sub.Edges(), DeepEquals, []Edge{{From: "root", To: "mid", EdgeProperties: EdgeProperties{MetaAnnotation: true}}})

	g.RemoveNode("neuron 1")
	c.Assert(g.HasNode("neuron 1"), Equals, false)
	c.Assert(g.Successors("mid"), DeepEquals, []string{"leaf"})

	other := NewGraph()
	other.AddEdge("mid", "neuron 2", EdgeProperties{})
	other.AddNode("neuron 2", NeuronNode)
	g.Update(other)
	t, found := g.Type("mid")
	c.Assert(found, Equals, true)
	c.Assert(t, Equals, NodeType(""))
	c.Assert(g.HasEdge("mid", "neuron 2"), Equals, true)
}

func (s *CoreSuite) TestJSONRoundTrip(c *C) {
	dir := c.MkDir()
	path := filepath.Join(dir, "x.json")
	in := map[string][]int64{"b": {2, 1}, "a": {}}
	c.Assert(WriteJSON(path, in), IsNil)
	b, err := MarshalJSON(in)
	c.Assert(err, IsNil)
	c.Assert(string(b), Equals, "{\n  \"a\": [],\n  \"b\": [\n    2,\n    1\n  ]\n}\n")

	var out map[string][]int64
	c.Assert(ReadJSON(path, &out), IsNil)
	c.Assert(out, DeepEquals, in)
	c.Assert(IsFile(path), Equals, true)
	c.Assert(IsDir(path), Equals, false)
	c.Assert(IsDir(dir), Equals, true)
}

func (s *CoreSuite) TestVersion(c *C) {
	v := Version()
	c.Assert(v.Major, Equals, uint64(0))
	c.Assert(v.String(), Equals, versionString)
}

func (s *CoreSuite) TestVector3dJSON(c *C) {
	b, err := MarshalJSON(struct {
		XYZ Vector3d `json:"xyz"`
	}{Vector3d{1, -2.5, 1e-3}})
	c.Assert(err, IsNil)
	c.Assert(string(b), Equals, "{\n  \"xyz\": [\n    1.0,\n    -2.5,\n    0.001\n  ]\n}\n")

	var v Vector3d
	_, err = MarshalJSON(Vector3d{math.NaN(), 0, 0})
	c.Assert(err, NotNil)
	c.Assert(json.Unmarshal([]byte("[1.0, 2, 3.5]"), &v), IsNil)
	c.Assert(v, Equals, Vector3d{1, 2, 3.5})
}

func (s *CoreSuite) TestMetadata(c *C) {
	path := filepath.Join(c.MkDir(), MetadataFile)
	in := &Metadata{
		Version:    "0.4.0",
		Timestamp:  "2024-03-01 12:30Z",
		ConfigHash: "abc123",
		Units:      "nm",
		Server:     "https://catmaid.example.org",
		ProjectID:  4,
		Citation:   Citation{DOI: "10.1000/xyz"},
	}
	c.Assert(WriteMetadata(path, in), IsNil)
	out, err := ReadMetadata(path)
	c.Assert(err, IsNil)
	c.Assert(out, DeepEquals, in)

	_, err = ReadMetadata(filepath.Join(c.MkDir(), MetadataFile))
	c.Assert(err, NotNil)
}

func (s *CoreSuite) TestLogging(c *C) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.SetFlags(0)
	defer func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags)
		SetLogMode(WarningMode)
	}()

	SetLogMode(InfoMode)
	Debugf("hidden\n")
	Infof("shown %d\n", 1)
	NewTimeLog().Infof("timed")
	NewTimeLog().Debugf("hidden")
	SetLogMode(SilentMode)
	Errorf("hidden\n")
	c.Assert(buf.String(), Matches, "(?s)    INFO shown 1\n    INFO timed: [^\n]+s\n")

	var lc *LogConfig
	lc.SetLogger()
	Shutdown()
}
