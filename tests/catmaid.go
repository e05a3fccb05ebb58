package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/janelia-flyem/catpub/catmaid"
)

// FakeAnnotation is an annotation, optionally itself annotated with
// meta-annotations.
type FakeAnnotation struct {
	Name string
	Meta []string
}

// FakeVolume is a volume mesh served by the fake server.
type FakeVolume struct {
	ID       int64
	Name     string
	Vertices [][3]float64
	Faces    [][3]int
}

// FakeProject is the content of the single project served by FakeCATMAID.
type FakeProject struct {
	ID          int
	Token       string
	Annotations []FakeAnnotation
	Neurons     []catmaid.Neuron
	Landmarks   []catmaid.Landmark
	Groups      []catmaid.LandmarkGroup
	Volumes     []FakeVolume
}

// FakeCATMAID serves a FakeProject over HTTP the way a CATMAID server does.
type FakeCATMAID struct {
	*httptest.Server
	project *FakeProject

	mu       sync.Mutex
	requests []string
	annIDs   map[string]int64
	annNames map[int64]string
}

// NewFakeCATMAID starts a server for the project.  Close it when done.
func NewFakeCATMAID(p *FakeProject) *FakeCATMAID {
	f := &FakeCATMAID{
		project:  p,
		annIDs:   make(map[string]int64),
		annNames: make(map[int64]string),
	}
	var names []string
	seen := make(map[string]struct{})
	add := func(name string) {
		if _, found := seen[name]; !found {
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	for _, ann := range p.Annotations {
		add(ann.Name)
		for _, meta := range ann.Meta {
			add(meta)
		}
	}
	for _, nrn := range p.Neurons {
		for _, ann := range nrn.Annotations {
			add(ann)
		}
	}
	sort.Strings(names)
	for i, name := range names {
		id := int64(100 + i)
		f.annIDs[name] = id
		f.annNames[id] = name
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	return f
}

// Requests returns "METHOD path" for every request received so far.
func (f *FakeCATMAID) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.requests))
	copy(out, f.requests)
	return out
}

func (f *FakeCATMAID) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.mu.Unlock()

	if f.project.Token != "" && r.Header.Get("X-Authorization") != "Token "+f.project.Token {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "bad token", "type": "PermissionError"})
		return
	}
	prefix := fmt.Sprintf("/%d/", f.project.ID)
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	endpoint := strings.TrimPrefix(r.URL.Path, prefix)
	parts := strings.Split(strings.Trim(endpoint, "/"), "/")

	switch {
	case r.Method == http.MethodGet && endpoint == "annotations/":
		f.annotationList(w)
	case r.Method == http.MethodPost && endpoint == "annotations/query-targets":
		f.queryTargets(w, r)
	case r.Method == http.MethodPost && endpoint == "annotations/forskeletons":
		f.forSkeletons(w, r)
	case r.Method == http.MethodGet && endpoint == "skeletons/":
		skids := []int64{}
		for _, nrn := range f.project.Neurons {
			skids = append(skids, nrn.SkeletonID)
		}
		writeJSON(w, http.StatusOK, skids)
	case r.Method == http.MethodPost && endpoint == "skeleton/neuronnames":
		f.neuronNames(w, r)
	case r.Method == http.MethodGet && len(parts) == 3 && parts[0] == "skeletons" && parts[2] == "compact-detail":
		f.compactDetail(w, parts[1])
	case r.Method == http.MethodGet && endpoint == "landmarks/":
		lmarks := f.project.Landmarks
		if lmarks == nil {
			lmarks = []catmaid.Landmark{}
		}
		writeJSON(w, http.StatusOK, lmarks)
	case r.Method == http.MethodGet && endpoint == "landmarks/groups/":
		groups := f.project.Groups
		if groups == nil {
			groups = []catmaid.LandmarkGroup{}
		}
		writeJSON(w, http.StatusOK, groups)
	case r.Method == http.MethodGet && endpoint == "volumes/":
		f.volumeList(w)
	case r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "volumes":
		f.volume(w, parts[1])
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// formList returns the values of key[0], key[1], ...
func formList(r *http.Request, key string) []string {
	var out []string
	for i := 0; ; i++ {
		v, found := r.Form[fmt.Sprintf("%s[%d]", key, i)]
		if !found {
			return out
		}
		out = append(out, v...)
	}
}

func (f *FakeCATMAID) annotationList(w http.ResponseWriter) {
	type ann struct {
		ID    int64         `json:"id"`
		Name  string        `json:"name"`
		Users []interface{} `json:"users"`
	}
	var ids []int64
	for id := range f.annNames {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := []ann{}
	for _, id := range ids {
		out = append(out, ann{ID: id, Name: f.annNames[id], Users: []interface{}{}})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"annotations": out})
}

type fakeEntityAnn struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	UID  int    `json:"uid"`
}

type fakeEntity struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	SkeletonIDs []int64         `json:"skeleton_ids,omitempty"`
	Annotations []fakeEntityAnn `json:"annotations,omitempty"`
}

func (f *FakeCATMAID) entityAnns(names []string) []fakeEntityAnn {
	out := []fakeEntityAnn{}
	for _, name := range names {
		out = append(out, fakeEntityAnn{ID: f.annIDs[name], Name: name, UID: 1})
	}
	return out
}

func (f *FakeCATMAID) queryTargets(w http.ResponseWriter, r *http.Request) {
	types := formList(r, "types")
	wantType := func(t string) bool {
		if len(types) == 0 {
			return true
		}
		for _, want := range types {
			if want == t {
				return true
			}
		}
		return false
	}
	name := r.Form.Get("name")
	exact := r.Form.Get("name_exact") == "true"
	withAnns := r.Form.Get("with_annotations") == "true"
	var required []map[int64]struct{}
	for _, elem := range formList(r, "annotated_with") {
		set := make(map[int64]struct{})
		for _, s := range strings.Split(elem, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			set[id] = struct{}{}
		}
		required = append(required, set)
	}
	matches := func(entName string, anns []string) bool {
		if name != "" {
			if exact && entName != name {
				return false
			}
			if !exact && !strings.Contains(entName, name) {
				return false
			}
		}
		for _, set := range required {
			var hit bool
			for _, ann := range anns {
				if _, found := set[f.annIDs[ann]]; found {
					hit = true
				}
			}
			if !hit {
				return false
			}
		}
		return true
	}

	entities := []fakeEntity{}
	if wantType("annotation") {
		meta := make(map[string][]string)
		for _, ann := range f.project.Annotations {
			meta[ann.Name] = append(meta[ann.Name], ann.Meta...)
		}
		var ids []int64
		for id := range f.annNames {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			annName := f.annNames[id]
			if !matches(annName, meta[annName]) {
				continue
			}
			e := fakeEntity{ID: id, Name: annName, Type: "annotation"}
			if withAnns {
				e.Annotations = f.entityAnns(meta[annName])
			}
			entities = append(entities, e)
		}
	}
	if wantType("neuron") {
		for _, nrn := range f.project.Neurons {
			if !matches(nrn.Name, nrn.Annotations) {
				continue
			}
			e := fakeEntity{ID: nrn.SkeletonID + 1000000, Name: nrn.Name, Type: "neuron", SkeletonIDs: []int64{nrn.SkeletonID}}
			if withAnns {
				e.Annotations = f.entityAnns(nrn.Annotations)
			}
			entities = append(entities, e)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entities": entities, "totalRecords": len(entities)})
}

func (f *FakeCATMAID) neuron(s string) *catmaid.Neuron {
	skid, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	for i := range f.project.Neurons {
		if f.project.Neurons[i].SkeletonID == skid {
			return &f.project.Neurons[i]
		}
	}
	return nil
}

func (f *FakeCATMAID) neuronNames(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]string)
	for _, s := range formList(r, "skids") {
		if nrn := f.neuron(s); nrn != nil {
			out[s] = nrn.Name
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeCATMAID) forSkeletons(w http.ResponseWriter, r *http.Request) {
	type skelAnn struct {
		ID  int64 `json:"id"`
		UID int   `json:"uid"`
	}
	skels := make(map[string][]skelAnn)
	names := make(map[string]string)
	for _, s := range formList(r, "skeleton_ids") {
		nrn := f.neuron(s)
		if nrn == nil {
			continue
		}
		anns := []skelAnn{}
		for _, ann := range nrn.Annotations {
			id := f.annIDs[ann]
			anns = append(anns, skelAnn{ID: id, UID: 1})
			names[strconv.FormatInt(id, 10)] = ann
		}
		skels[s] = anns
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"skeletons": skels, "annotations": names})
}

func (f *FakeCATMAID) compactDetail(w http.ResponseWriter, s string) {
	nrn := f.neuron(s)
	if nrn == nil {
		writeJSON(w, http.StatusOK, map[string]string{"error": "Skeleton " + s + " doesn't exist", "type": "ValueError"})
		return
	}
	nodes := [][]interface{}{}
	for _, n := range nrn.Nodes {
		var parent interface{}
		if n.ParentID >= 0 {
			parent = n.ParentID
		}
		nodes = append(nodes, []interface{}{n.ID, parent, 1, n.Location[0], n.Location[1], n.Location[2], n.Radius, 5})
	}
	conns := [][]interface{}{}
	for _, c := range nrn.Connectors {
		conns = append(conns, []interface{}{c.NodeID, c.ConnectorID, c.Relation, c.Location[0], c.Location[1], c.Location[2]})
	}
	var tags interface{} = []interface{}{}
	if len(nrn.Tags) != 0 {
		tags = nrn.Tags
	}
	writeJSON(w, http.StatusOK, []interface{}{nodes, conns, tags})
}

func (f *FakeCATMAID) volumeList(w http.ResponseWriter) {
	data := [][]interface{}{}
	for _, v := range f.project.Volumes {
		data = append(data, []interface{}{v.ID, v.Name, "", 1})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"columns": []string{"id", "name", "comment", "user_id"},
		"data":    data,
	})
}

func (f *FakeCATMAID) volume(w http.ResponseWriter, s string) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		http.Error(w, "bad volume ID", http.StatusNotFound)
		return
	}
	for _, v := range f.project.Volumes {
		if v.ID != id {
			continue
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id":   v.ID,
			"name": v.Name,
			"mesh": X3DMesh(v.Vertices, v.Faces),
		})
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such volume", "type": "Http404"})
}

// X3DMesh encodes a mesh the way CATMAID stores volumes.
func X3DMesh(vertices [][3]float64, faces [][3]int) string {
	var idx, pts []string
	for _, f := range faces {
		idx = append(idx, fmt.Sprintf("%d %d %d", f[0], f[1], f[2]))
	}
	for _, v := range vertices {
		pts = append(pts, fmt.Sprintf("%g %g %g", v[0], v[1], v[2]))
	}
	return fmt.Sprintf(`<IndexedTriangleSet index="%s"><Coordinate point="%s"/></IndexedTriangleSet>`,
		strings.Join(idx, " "), strings.Join(pts, " "))
}
