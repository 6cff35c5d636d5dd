package generator

import (
	"fmt"
	"sync"

	"github.com/shouni/prompt-image-kit/pkg/domain"
)

// TaskTable は実行中の生成タスクを ID で保持します。
// 終端状態になったタスクは即座に取り除かれるため、完了後の参照は TaskNotFound になるのだ。
type TaskTable struct {
	mu    sync.Mutex
	tasks map[string]*domain.GenerationTask
}

func NewTaskTable() *TaskTable {
	return &TaskTable{tasks: make(map[string]*domain.GenerationTask)}
}

// Create は pending / 0% のタスクを登録します。
func (t *TaskTable) Create(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tasks[id] = &domain.GenerationTask{ID: id, Status: domain.TaskPending}
}

// Update は状態を書き換えます。終端状態の場合はその場で削除します。
func (t *TaskTable) Update(id string, status domain.TaskStatus, progress int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, ok := t.tasks[id]
	if !ok {
		return
	}
	if status.Terminal() {
		delete(t.tasks, id)
		return
	}
	task.Status = status
	task.Progress = progress
	task.Message = &message
}

// Get はタスクのコピーを返します。
func (t *TaskTable) Get(id string) (domain.GenerationTask, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, ok := t.tasks[id]
	if !ok {
		return domain.GenerationTask{}, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}
	return *task, nil
}

// Len は実行中のタスク数です。
func (t *TaskTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tasks)
}
