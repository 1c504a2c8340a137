package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"studentdb/domain/student"
	"studentdb/errors"
	httpx "studentdb/http"
	hbasic "studentdb/http/basic"
	"studentdb/store"
)

// IStudentStore 路由依赖的存储操作
type IStudentStore interface {
	Create(ctx context.Context, rec student.Student) (student.Entry, error)
	ListAll(ctx context.Context) map[int64]student.Student
	Get(ctx context.Context, id int64) (student.Entry, error)
	Update(ctx context.Context, id int64, rec student.Student) (student.Entry, error)
	Delete(ctx context.Context, id int64) (student.Student, error)
	Stats(ctx context.Context) store.Storage
}

var _ IStudentStore = (*store.Store)(nil)

// DeleteResponse 删除成功的响应体
type DeleteResponse struct {
	Message        string          `json:"message"`
	DeletedStudent student.Student `json:"deleted_student"`
}

// StudentRouter 学生记录路由
type StudentRouter struct {
	config *RouteConfig
	store  IStudentStore
	utils  *hbasic.HttpUtils
}

// NewStudentRouter 创建路由
func NewStudentRouter(s IStudentStore) *StudentRouter {
	return &StudentRouter{
		config: DefaultRouteConfig(),
		store:  s,
		utils:  &hbasic.HttpUtils{},
	}
}

// WithConfig 配置路由行为
func (r *StudentRouter) WithConfig(config *RouteConfig) *StudentRouter {
	if config != nil {
		r.config = config
	}
	return r
}

// Register 注册全部路由
func (r *StudentRouter) Register(server httpx.IHttpServer) error {
	if r.store == nil {
		return fmt.Errorf("store cannot be nil")
	}
	base := r.config.BasePath
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	server.GET("/", r.handleRoot)
	server.GET(r.config.StoragePath, r.handleStorage)

	group := server.Group(strings.TrimSuffix(base, "/"))
	group.Use(r.config.Middlewares...)

	// POST/GET /students/
	group.POST("/", r.handleCreate)
	group.GET("/", r.handleList)

	// GET/PUT/DELETE /students/:id
	group.GET("/:id", r.handleGet)
	group.PUT("/:id", r.handleUpdate)
	group.DELETE("/:id", r.handleDelete)
	return nil
}

func (r *StudentRouter) handleRoot(c httpx.IHttpContext) error {
	return c.JSON(http.StatusOK, map[string]string{"message": RootMessage})
}

func (r *StudentRouter) handleStorage(c httpx.IHttpContext) error {
	return c.JSON(http.StatusOK, r.store.Stats(c.GetContext()))
}

func (r *StudentRouter) handleCreate(c httpx.IHttpContext) error {
	rec, err := r.decode(c)
	if err != nil {
		return err
	}
	entry, err := r.store.Create(c.GetContext(), rec)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, entry)
}

func (r *StudentRouter) handleList(c httpx.IHttpContext) error {
	return c.JSON(http.StatusOK, r.store.ListAll(c.GetContext()))
}

func (r *StudentRouter) handleGet(c httpx.IHttpContext) error {
	id, err := r.utils.ParseID(c, "id")
	if err != nil {
		return err
	}
	entry, err := r.store.Get(c.GetContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}

func (r *StudentRouter) handleUpdate(c httpx.IHttpContext) error {
	id, err := r.utils.ParseID(c, "id")
	if err != nil {
		return err
	}
	rec, err := r.decode(c)
	if err != nil {
		return err
	}
	entry, err := r.store.Update(c.GetContext(), id, rec)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}

func (r *StudentRouter) handleDelete(c httpx.IHttpContext) error {
	id, err := r.utils.ParseID(c, "id")
	if err != nil {
		return err
	}
	rec, err := r.store.Delete(c.GetContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, DeleteResponse{Message: DeleteMessage, DeletedStudent: rec})
}

// decode 读取并严格解码请求体，再执行配置的校验器
func (r *StudentRouter) decode(c httpx.IHttpContext) (student.Student, error) {
	body, err := c.GetBody()
	if err != nil {
		return student.Student{}, err
	}
	rec, err := student.Decode(body)
	if err != nil {
		return student.Student{}, err
	}
	if r.config.Validator != nil {
		if err := r.config.Validator.Validate(rec); err != nil {
			if _, ok := err.(errors.IError); !ok {
				err = errors.WrapError(err, errors.ErrCodeValidation, err.Error())
			}
			return student.Student{}, err
		}
	}
	return rec, nil
}
