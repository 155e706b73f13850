// Package monitoring serves the state of forkers over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/sarchlab/vmfork/mem/vm/cow"
	"github.com/sarchlab/vmfork/mem/vm/pagetable"
	"github.com/sarchlab/vmfork/sim"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Monitor turns a program that forks address spaces into a server that can
// be inspected while it runs.
//
// Forkers are not safe for concurrent use. Code that changes a registered
// forker while the server runs must do so inside Do.
type Monitor struct {
	mu         sync.Mutex
	forkers    []*cow.Forker
	portNumber int

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterForker registers a forker to be monitored.
func (m *Monitor) RegisterForker(f *cow.Forker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.forkers = append(m.forkers, f)
}

// Do runs f while no request is being served.
func (m *Monitor) Do(f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f()
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        sim.GetIDGenerator().Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the handler of all the monitoring routes.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/forkers", m.listForkers)
	r.HandleFunc("/api/forker/{name}", m.forkerDetails)
	r.HandleFunc("/api/forker/{name}/stats", m.forkerStats)
	r.HandleFunc("/api/forker/{name}/spaces", m.listSpaces)
	r.HandleFunc("/api/forker/{name}/refcounts", m.listRefCounts)
	r.HandleFunc("/api/forker/{name}/space/{id}", m.dumpSpace)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)

	return r
}

// StartServer starts the monitor as a web server and returns the port it
// listens on.
func (m *Monitor) StartServer() int {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	port := listener.Addr().(*net.TCPAddr).Port

	fmt.Fprintf(os.Stderr,
		"Monitoring forks with http://localhost:%d\n", port)

	router := m.Router()
	go func() {
		err := http.Serve(listener, router)
		dieOnErr(err)
	}()

	return port
}

func (m *Monitor) listForkers(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.forkers))
	for _, f := range m.forkers {
		names = append(names, f.Name())
	}

	writeJSON(w, names)
}

func (m *Monitor) forkerDetails(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f := m.findForkerOr404(w, mux.Vars(r)["name"])
	if f == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(f)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type statsRsp struct {
	Spaces            int    `json:"spaces"`
	SharedFrames      int    `json:"shared_frames"`
	FramesAllocated   int    `json:"frames_allocated"`
	FramesTotal       int    `json:"frames_total"`
	Forks             uint64 `json:"forks"`
	FailedForks       uint64 `json:"failed_forks"`
	EagerFramesCopied uint64 `json:"eager_frames_copied"`
	FaultsCopied      uint64 `json:"faults_copied"`
	FaultsRetained    uint64 `json:"faults_retained"`
	FaultsNoop        uint64 `json:"faults_noop"`
	ForeignFaults     uint64 `json:"foreign_faults"`
}

func (m *Monitor) forkerStats(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f := m.findForkerOr404(w, mux.Vars(r)["name"])
	if f == nil {
		return
	}

	s := f.Stats()
	writeJSON(w, statsRsp{
		Spaces:            len(f.Spaces()),
		SharedFrames:      len(f.SharedFrames()),
		FramesAllocated:   f.Memory().NumAllocated(),
		FramesTotal:       f.Memory().NumFrames(),
		Forks:             s.Forks,
		FailedForks:       s.FailedForks,
		EagerFramesCopied: s.EagerFramesCopied,
		FaultsCopied:      s.FaultsCopied,
		FaultsRetained:    s.FaultsRetained,
		FaultsNoop:        s.FaultsNoop,
		ForeignFaults:     s.ForeignFaults,
	})
}

type spaceRsp struct {
	ID          string `json:"id"`
	Root        uint64 `json:"root"`
	MappedPages int    `json:"mapped_pages"`
}

func (m *Monitor) listSpaces(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f := m.findForkerOr404(w, mux.Vars(r)["name"])
	if f == nil {
		return
	}

	rsp := make([]spaceRsp, 0)
	for _, s := range f.Spaces() {
		rsp = append(rsp, spaceRsp{
			ID:          s.ID(),
			Root:        uint64(s.Root().PPN()),
			MappedPages: s.NumMappedPages(),
		})
	}

	writeJSON(w, rsp)
}

type refCountRsp struct {
	PPN   uint64 `json:"ppn"`
	Count int    `json:"count"`
}

func (m *Monitor) listRefCounts(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f := m.findForkerOr404(w, mux.Vars(r)["name"])
	if f == nil {
		return
	}

	rsp := make([]refCountRsp, 0)
	for _, ppn := range f.SharedFrames() {
		count, err := f.RefCount(ppn)
		dieOnErr(err)

		rsp = append(rsp, refCountRsp{PPN: uint64(ppn), Count: count})
	}

	writeJSON(w, rsp)
}

func (m *Monitor) dumpSpace(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	vars := mux.Vars(r)

	f := m.findForkerOr404(w, vars["name"])
	if f == nil {
		return
	}

	s := m.findSpaceOr404(w, f, vars["id"])
	if s == nil {
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	err := s.Dump(w)
	dieOnErr(err)
}

func (m *Monitor) findForkerOr404(
	w http.ResponseWriter,
	name string,
) *cow.Forker {
	for _, f := range m.forkers {
		if f.Name() == name {
			return f
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Forker not found"))
	dieOnErr(err)

	return nil
}

func (m *Monitor) findSpaceOr404(
	w http.ResponseWriter,
	f *cow.Forker,
	id string,
) *pagetable.AddressSpace {
	s, ok := f.Space(id)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Address space not found"))
		dieOnErr(err)

		return nil
	}

	return s
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressBarRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
