package handles

import (
	"context"
	"strconv"

	"github.com/OpenListTeam/tgdrive/internal/chat"
	"github.com/OpenListTeam/tgdrive/internal/db"
	"github.com/OpenListTeam/tgdrive/internal/errs"
	"github.com/OpenListTeam/tgdrive/internal/model"
	"github.com/OpenListTeam/tgdrive/server/common"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

const (
	defaultTaskPageSize = 20
	maxTaskPageSize     = 200
)

var undoneStatuses = []model.TaskStatus{
	model.StatusWaiting,
	model.StatusFetched,
	model.StatusStarted,
}

var doneStatuses = []model.TaskStatus{
	model.StatusCompleted,
	model.StatusFailed,
}

// AdminChat is the chat scope of tasks added through the admin api.
const AdminChat = "admin"

// TaskService adds url tasks and stops unfinished ones.
type TaskService interface {
	AcceptURL(ctx context.Context, msg chat.Message, rawURL string) (*model.Task, error)
	Cancel(ctx context.Context, id uint) error
}

type addURLReq struct {
	URL string `json:"url" binding:"required"`
}

type taskListQuery struct {
	page     int
	pageSize int
	keyword  string
}

func parseTaskListQuery(c *gin.Context) taskListQuery {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultTaskPageSize)))
	if err != nil || pageSize <= 0 {
		pageSize = defaultTaskPageSize
	}
	if pageSize > maxTaskPageSize {
		pageSize = maxTaskPageSize
	}
	return taskListQuery{
		page:     page,
		pageSize: pageSize,
		keyword:  c.Query("keyword"),
	}
}

func tasksToRecords(tasks []model.Task) []model.TaskRecord {
	records := make([]model.TaskRecord, 0, len(tasks))
	for i := range tasks {
		records = append(records, tasks[i].Record())
	}
	return records
}

func taskListHandler(statuses ...model.TaskStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := parseTaskListQuery(c)
		tasks, total, err := db.ListTasks(statuses, query.keyword, query.page, query.pageSize)
		if err != nil {
			common.ErrorResp(c, err, 500, true)
			return
		}
		common.SuccessResp(c, common.PageResp{
			Content: tasksToRecords(tasks),
			Total:   total,
		})
	}
}

func getTargetedHandler(callback func(c *gin.Context, task *model.Task)) gin.HandlerFunc {
	return func(c *gin.Context) {
		tid, err := strconv.ParseUint(c.Query("tid"), 10, 64)
		if err != nil {
			common.ErrorStrResp(c, "invalid task id", 400)
			return
		}
		t, err := db.GetTaskByID(uint(tid))
		if err != nil {
			if errors.Is(err, errs.TaskNotFound) {
				common.ErrorStrResp(c, "task not found", 404)
				return
			}
			common.ErrorResp(c, err, 500, true)
			return
		}
		callback(c, t)
	}
}

func getBatchHandler(callback func(c *gin.Context, task *model.Task) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tids []uint
		if err := c.ShouldBind(&tids); err != nil {
			common.ErrorStrResp(c, "invalid request format", 400)
			return
		}
		retErrs := make(map[string]string)
		for _, tid := range tids {
			key := strconv.FormatUint(uint64(tid), 10)
			t, err := db.GetTaskByID(tid)
			if err != nil {
				retErrs[key] = "task not found"
				continue
			}
			if err := callback(c, t); err != nil {
				retErrs[key] = err.Error()
			}
		}
		common.SuccessResp(c, retErrs)
	}
}

func addURL(service TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addURLReq
		if err := c.ShouldBind(&req); err != nil {
			common.ErrorStrResp(c, "url is required", 400)
			return
		}
		msg := chat.Message{Ref: chat.Ref{ChatHex: AdminChat}, BotChatHex: AdminChat}
		task, err := service.AcceptURL(c.Request.Context(), msg, req.URL)
		if err != nil {
			common.ErrorResp(c, err, 400)
			return
		}
		common.SuccessResp(c, task.Record())
	}
}

func cancelTask(canceler TaskService) func(c *gin.Context, task *model.Task) error {
	return func(c *gin.Context, task *model.Task) error {
		return canceler.Cancel(c.Request.Context(), task.ID)
	}
}

// deleteTask removes a finished task; unfinished ones have to be cancelled.
func deleteTask(_ *gin.Context, task *model.Task) error {
	if !task.Status.IsTerminal() {
		return errors.Wrapf(errs.InvalidState, "task %d is %s, cancel it instead", task.ID, task.Status)
	}
	return db.DeleteTaskByID(task.ID)
}

func SetupTaskRoute(g *gin.RouterGroup, service TaskService) {
	g.GET("/undone", taskListHandler(undoneStatuses...))
	g.GET("/done", taskListHandler(doneStatuses...))
	g.POST("/add_url", addURL(service))
	g.POST("/info", getTargetedHandler(func(c *gin.Context, task *model.Task) {
		common.SuccessResp(c, task.Record())
	}))
	g.POST("/cancel", getTargetedHandler(func(c *gin.Context, task *model.Task) {
		if err := cancelTask(service)(c, task); err != nil {
			common.ErrorResp(c, err, 400)
			return
		}
		common.SuccessResp(c)
	}))
	g.POST("/delete", getTargetedHandler(func(c *gin.Context, task *model.Task) {
		if err := deleteTask(c, task); err != nil {
			common.ErrorResp(c, err, 400)
			return
		}
		common.SuccessResp(c)
	}))
	g.POST("/cancel_some", getBatchHandler(cancelTask(service)))
	g.POST("/delete_some", getBatchHandler(deleteTask))
	g.POST("/clear_done", func(c *gin.Context) {
		n, err := db.DeleteTerminalTasks()
		if err != nil {
			common.ErrorResp(c, err, 500, true)
			return
		}
		common.SuccessResp(c, gin.H{"deleted": n})
	})
}
