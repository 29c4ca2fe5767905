package tasker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/OpenListTeam/tache"
	"github.com/OpenListTeam/tgdrive/internal/conf"
	"github.com/OpenListTeam/tgdrive/internal/db"
	"github.com/OpenListTeam/tgdrive/internal/errs"
	"github.com/OpenListTeam/tgdrive/internal/model"
	"github.com/OpenListTeam/tgdrive/pkg/utils"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
)

// TransferTask runs one stored task on the worker pool.
type TransferTask struct {
	tache.Base
	TaskID   uint
	Filename string
	driver   *Driver
	done     func()
}

func (t *TransferTask) GetName() string {
	return fmt.Sprintf("upload [%s] to onedrive", t.Filename)
}

func (t *TransferTask) GetStatus() string {
	return "transferring"
}

func (t *TransferTask) Run() error {
	defer t.done()
	err := t.driver.Transfer(t.Ctx(), t.TaskID)
	if errs.IsCanceled(err) {
		return nil
	}
	return err
}

// Dispatcher feeds stored tasks to a fixed number of workers. Tasks left
// fetched or started by a previous run are resumed once at start, waiting
// tasks are picked up by polling.
type Dispatcher struct {
	driver       *Driver
	registry     *Registry
	manager      *tache.Manager[*TransferTask]
	inFlight     mapset.Set[uint]
	pollInterval time.Duration
}

func NewDispatcher(driver *Driver, registry *Registry, c conf.Tasks) *Dispatcher {
	workers := c.Workers
	if workers <= 0 {
		workers = 1
	}
	poll := c.PollInterval
	if poll <= 0 {
		poll = time.Second
	}
	return &Dispatcher{
		driver:       driver,
		registry:     registry,
		manager:      tache.NewManager[*TransferTask](tache.WithWorks(workers), tache.WithMaxRetry(0)),
		inFlight:     mapset.NewSet[uint](),
		pollInterval: poll,
	}
}

// Run resumes interrupted tasks and then polls for waiting ones until ctx
// is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	resumed, err := db.GetTasksByStatus(model.StatusFetched, model.StatusStarted)
	if err != nil {
		return errors.WithMessage(err, "failed load interrupted tasks")
	}
	for i := range resumed {
		utils.Log.Infof("resuming task %d %s at byte %d", resumed[i].ID, resumed[i].Filename, resumed[i].CurrentLength)
		d.submit(&resumed[i])
	}

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()
	for {
		if err := d.Poll(); err != nil {
			utils.Log.Warnf("failed poll waiting tasks: %+v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Poll submits every waiting task that is not already running.
func (d *Dispatcher) Poll() error {
	if d.registry.ShuttingDown() {
		return nil
	}
	tasks, err := db.GetTasksByStatus(model.StatusWaiting)
	if err != nil {
		return err
	}
	for i := range tasks {
		d.submit(&tasks[i])
	}
	return nil
}

func (d *Dispatcher) submit(t *model.Task) {
	id := t.ID
	if !d.inFlight.Add(id) {
		return
	}
	d.registry.Register(id, t.ChatUserHex)
	task := &TransferTask{
		TaskID:   id,
		Filename: t.Filename,
		driver:   d.driver,
		done:     func() { d.inFlight.Remove(id) },
	}
	task.SetID(strconv.FormatUint(uint64(id), 10))
	d.manager.Add(task)
}

// InFlight reports whether task id is queued or running.
func (d *Dispatcher) InFlight(id uint) bool {
	return d.inFlight.Contains(id)
}

func (d *Dispatcher) Running() int {
	return d.inFlight.Cardinality()
}
