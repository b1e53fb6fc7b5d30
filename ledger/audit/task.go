// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package audit

import (
	"sync"
	"sync/atomic"

	"github.com/0xsoniclabs/tracy"
)

// task is a unit of work of an audit. Tasks form a tree: a task runs once
// all its children completed, and notifies its single parent when done.
type task struct {
	action          func()       // < the check to perform
	numDependencies atomic.Int32 // < number of children still running
	parentTask      *task        // < optional parent to notify when done
}

func newTask(action func(), numDependencies int) *task {
	t := &task{action: action}
	t.numDependencies.Store(int32(numDependencies))
	return t
}

// run executes the task and returns its parent if it became ready to run.
func (t *task) run() *task {
	t.action()
	if t.parentTask == nil {
		return nil
	}
	if t.parentTask.numDependencies.Add(-1) != 0 {
		return nil // other children still running
	}
	return t.parentTask
}

// runTasks executes the given tasks in parallel, respecting their
// dependencies. Parents must be listed after all of their children.
func runTasks(tasks []*task, numWorkers int) {
	// Small audits are not worth the overhead of parallelism.
	if len(tasks) < 20 || numWorkers <= 1 {
		for _, task := range tasks {
			task.action()
		}
		return
	}

	workList := make([]*task, 0, len(tasks))
	for _, task := range tasks {
		if task.numDependencies.Load() == 0 {
			workList = append(workList, task)
		}
	}

	pos := atomic.Int32{}
	processTasks := func() {
		zone := tracy.ZoneBegin("audit::worker")
		defer zone.End()
		for {
			next := pos.Add(1) - 1
			if int(next) >= len(workList) {
				return
			}
			task := workList[next]
			for task != nil {
				task = task.run()
			}
		}
	}

	// A parent is run by the worker completing its last child, so all tasks
	// are done once every worker ran out of work.
	var wg sync.WaitGroup
	for range numWorkers - 1 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			processTasks()
		}()
	}
	processTasks()

	zone := tracy.ZoneBegin("audit::wait_for_completion")
	wg.Wait()
	zone.End()
}
