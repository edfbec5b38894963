package metadata

/**
 * @brief Describes a unit of work for the job system. OnStart runs on a worker;
 * its result is handed to OnComplete, its error to OnFailure.
 */
type JobTask struct {
	/** @brief Name reported in logs. */
	Name string
	/** @brief Required. Performs the work. */
	OnStart func(input interface{}) (interface{}, error)
	/** @brief Optional. Invoked on the worker after OnStart succeeds. */
	OnComplete func(result interface{})
	/** @brief Optional. Invoked on the worker after OnStart fails. */
	OnFailure func(err error)
	/** @brief Passed to OnStart. */
	InputParams interface{}
}
